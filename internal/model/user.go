package model

import "time"

// Role names as stored in users.role.
const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known role names.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleOrganizer || r == RoleAdmin
}

// User represents an application user record as stored in the
// `users` table.  PasswordHash and the reset/lockout bookkeeping are never
// serialized.
//
// Fields:
//  ID                  – primary key identifier of the user.
//  Email               – unique email address.
//  PasswordHash        – bcrypt hashed password.
//  Role                – user, organizer or admin.
//  FailedLoginAttempts – consecutive failed logins since the last success.
//  LockoutUntil        – logins are refused until this instant (nullable).
type User struct {
	ID                  uint64     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               *string    `json:"phone"`
	PasswordHash        string     `json:"-"`
	Role                string     `json:"role"`
	IsActive            bool       `json:"is_active"`
	FailedLoginAttempts int        `json:"-"`
	LockoutUntil        *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// LockedAt reports whether the account is locked out at instant now.
func (u User) LockedAt(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA-256 hash.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
