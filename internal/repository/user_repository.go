package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NewUser is the input to Create.
type NewUser struct {
	Name     string
	Email    string
	Phone    *string
	Password string
	Role     string
}

const userColumns = `id, name, email, phone, password_hash, role, is_active, failed_login_attempts, lockout_until, created_at, updated_at`

func scanUser(s rowScanner) (model.User, error) {
	var (
		u       model.User
		phone   sql.NullString
		lockout sql.NullTime
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &phone, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.FailedLoginAttempts, &lockout, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, model.ErrUserNotFound
	}
	if err != nil {
		return u, err
	}
	u.Phone = stringPtr(phone)
	if lockout.Valid {
		t := lockout.Time
		u.LockoutUntil = &t
	}
	return u, nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes the password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, phone, password_hash, role) VALUES (?,?,?,?,?)",
		strings.TrimSpace(nu.Name), normalizeEmail(nu.Email), nullString(nu.Phone), hash, role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", normalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// List returns all users, newest first.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile changes name and/or phone.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, phone *string) error {
	sets, args := []string{}, []any{}
	if name != nil {
		sets = append(sets, "name=?")
		args = append(args, strings.TrimSpace(*name))
	}
	if phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, nullString(phone))
	}
	return r.update(ctx, id, sets, args)
}

// UpdateRoleActive changes role and/or the active flag.
func (r *UserRepo) UpdateRoleActive(ctx context.Context, id uint64, role *string, active *bool) error {
	sets, args := []string{}, []any{}
	if role != nil {
		sets = append(sets, "role=?")
		args = append(args, *role)
	}
	if active != nil {
		sets = append(sets, "is_active=?")
		args = append(args, *active)
	}
	return r.update(ctx, id, sets, args)
}

func (r *UserRepo) update(ctx context.Context, id uint64, sets []string, args []any) error {
	if len(sets) == 0 {
		return nil
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", append(args, id)...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports 0 affected rows when values are unchanged.
		_, err := r.GetByID(ctx, id)
		return err
	}
	return nil
}

// SetPassword stores a new bcrypt hash and clears any pending reset token
// and lockout.
func (r *UserRepo) SetPassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash=?, password_reset_hash=NULL, password_reset_expires=NULL,
		 failed_login_attempts=0, lockout_until=NULL WHERE id=?`, hash, id)
	return err
}

// RegisterFailedLogin counts a failed login.  Reaching maxAttempts locks the
// account until now+lockFor and restarts the counter; the return value
// reports whether this attempt triggered the lock.
func (r *UserRepo) RegisterFailedLogin(ctx context.Context, u model.User, maxAttempts int, lockFor time.Duration, now time.Time) (bool, error) {
	attempts := u.FailedLoginAttempts + 1
	var until any
	locked := attempts >= maxAttempts
	if locked {
		attempts = 0
		until = now.Add(lockFor).UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=?, lockout_until=COALESCE(?, lockout_until) WHERE id=?",
		attempts, until, u.ID)
	return locked, err
}

// ResetLoginFailures clears the failed login counter and lockout.
func (r *UserRepo) ResetLoginFailures(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=0, lockout_until=NULL WHERE id=?", id)
	return err
}

// SetResetToken stores the hash of a password reset token.
func (r *UserRepo) SetResetToken(ctx context.Context, id uint64, tokenHash string, expires time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_reset_hash=?, password_reset_expires=? WHERE id=?",
		tokenHash, expires.UTC(), id)
	return err
}

// GetByResetToken returns the user holding an unexpired reset token.
func (r *UserRepo) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE password_reset_hash=? AND password_reset_expires > ? LIMIT 1",
		tokenHash, now.UTC()))
}

// CountByRole counts users holding role.
func (r *UserRepo) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE role=?", role).Scan(&n)
	return n, err
}

// DeleteCascade removes a user and everything hanging off it in one
// transaction: seats held by the user's live bookings on other
// organizers' events go back to those events, events the user organizes
// are deleted with their seats and bookings, and the user's own bookings,
// payments and refresh tokens follow through foreign keys.
func (r *UserRepo) DeleteCascade(ctx context.Context, id uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE id=?", id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return model.ErrUserNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE events e
			 JOIN (SELECT b.event_id, COUNT(*) AS n
			       FROM bookings b JOIN booked_seats bs ON bs.booking_id = b.id
			       WHERE b.user_id = ? AND b.status <> 'cancelled'
			       GROUP BY b.event_id) x ON x.event_id = e.id
			 SET e.available_seats = LEAST(e.total_seats, e.available_seats + x.n), e.version = e.version + 1
			 WHERE e.organizer_id <> ?`, id, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE seats s
			 JOIN booked_seats bs ON bs.seat_id = s.id
			 JOIN bookings b ON b.id = bs.booking_id
			 SET s.is_booked = FALSE
			 WHERE b.user_id = ? AND b.status <> 'cancelled'`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE organizer_id=?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
		return err
	})
}
