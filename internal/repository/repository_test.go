package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var eventCols = []string{"id", "organizer_id", "category_id", "title", "description", "location",
	"event_date", "price_cents", "total_seats", "available_seats", "is_active", "version",
	"created_at", "updated_at"}

func eventRow(ev model.Event) *sqlmock.Rows {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(eventCols).AddRow(ev.ID, ev.OrganizerID, nil, ev.Title, "", ev.Location,
		now, int64(ev.Price), ev.TotalSeats, ev.AvailableSeats, ev.IsActive, ev.Version, now, now)
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "", placeholders(0))
	assert.Equal(t, "?", placeholders(1))
	assert.Equal(t, "?,?,?", placeholders(3))
}

func TestFreeSeatNumbersFillsGaps(t *testing.T) {
	taken := map[string]bool{"A1": true, "A3": true}
	assert.Equal(t, []string{"A2", "A4", "A5"}, freeSeatNumbers(taken, 3))
	assert.Empty(t, freeSeatNumbers(taken, 0))
}

func TestMarkBookedTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE seats SET is_booked = TRUE")).
		WithArgs(7, 1, 2).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("UPDATE seats SET is_booked = TRUE")).
		WithArgs(7, 3, 4).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := withTx(ctx, db, func(tx *sql.Tx) error {
		require.NoError(t, repo.MarkBookedTx(ctx, tx, 7, []uint64{1, 2}))
		return repo.MarkBookedTx(ctx, tx, 7, []uint64{3, 4})
	})
	require.ErrorIs(t, err, model.ErrSeatUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteFreeTxShortfall(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSeatRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(q("DELETE FROM seats WHERE event_id = ? AND is_booked = FALSE ORDER BY id DESC LIMIT ?")).
		WithArgs(7, 5).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectRollback()

	err := withTx(ctx, db, func(tx *sql.Tx) error { return repo.DeleteFreeTx(ctx, tx, 7, 5) })
	require.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveTxVersionConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	ctx := context.Background()
	ev := model.Event{ID: 7, Version: 4}

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE events SET available_seats = available_seats - ?, version = version + 1")).
		WithArgs(2, 7, 4, 2).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := withTx(ctx, db, func(tx *sql.Tx) error { return repo.ReserveTx(ctx, tx, ev, 2) })
	require.ErrorIs(t, err, model.ErrConcurrentUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseTxGuardsTotal(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	ctx := context.Background()
	ev := model.Event{ID: 7, Version: 1}

	mock.ExpectBegin()
	mock.ExpectExec(q("available_seats + ? <= total_seats")).
		WithArgs(3, 7, 1, 3).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, withTx(ctx, db, func(tx *sql.Tx) error { return repo.ReleaseTx(ctx, tx, ev, 3) }))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventGetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(99).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := withTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := repo.GetTx(context.Background(), tx, 99)
		return err
	})
	require.ErrorIs(t, err, model.ErrEventNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDeleteRefusesLiveBookings(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).
		WillReturnRows(eventRow(model.Event{ID: 7, OrganizerID: 3, Title: "Gala", TotalSeats: 10, AvailableSeats: 8, IsActive: true}))
	mock.ExpectQuery(q("SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status <> 'cancelled'")).WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), 7, 3, false)
	require.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventDeleteForbiddenForOtherOrganizer(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).
		WillReturnRows(eventRow(model.Event{ID: 7, OrganizerID: 3, TotalSeats: 10, AvailableSeats: 10}))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.Delete(context.Background(), 7, 4, false), ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventUpdateRejectsShrinkBelowBooked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	total := 3

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).
		WillReturnRows(eventRow(model.Event{ID: 7, OrganizerID: 3, TotalSeats: 10, AvailableSeats: 5}))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 7, 3, false, EventPatch{TotalSeats: &total})
	require.ErrorIs(t, err, model.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventUpdateShrinksSeatMap(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	total := 8
	before := model.Event{ID: 7, OrganizerID: 3, TotalSeats: 10, AvailableSeats: 6, Version: 2, Price: 1000}
	after := before
	after.TotalSeats, after.AvailableSeats, after.Version = 8, 4, 3

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).WillReturnRows(eventRow(before))
	mock.ExpectExec(q("DELETE FROM seats WHERE event_id = ? AND is_booked = FALSE")).
		WithArgs(7, 2).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("UPDATE events SET category_id = ?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			1000, 8, 4, false, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).WillReturnRows(eventRow(after))
	mock.ExpectCommit()

	ev, err := repo.Update(context.Background(), 7, 3, false, EventPatch{TotalSeats: &total})
	require.NoError(t, err)
	assert.Equal(t, 8, ev.TotalSeats)
	assert.Equal(t, 4, ev.AvailableSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewTxStore(db)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE events SET available_seats = available_seats - ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(l Ledger) error {
		require.NoError(t, l.ReserveAvailability(context.Background(), model.Event{ID: 1}, 1))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommitFailure(t *testing.T) {
	db, mock := newMock(t)
	store := NewTxStore(db)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("deadlock"))

	err := store.WithinTx(context.Background(), func(Ledger) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
}

func TestEventCreateUnknownCategory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	cat := uint64(99)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO events")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	ev := &model.Event{OrganizerID: 3, CategoryID: &cat, Title: "Gig", TotalSeats: 10, Price: 1000}
	err := repo.CreateWithSeats(context.Background(), ev, 0)
	require.ErrorIs(t, err, model.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventUpdateUnknownCategory(t *testing.T) {
	db, mock := newMock(t)
	repo := NewEventRepo(db)
	cat := uint64(99)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM events e WHERE e.id = ?")).WithArgs(7).
		WillReturnRows(eventRow(model.Event{ID: 7, OrganizerID: 3, TotalSeats: 10, AvailableSeats: 10}))
	mock.ExpectExec(q("UPDATE events SET category_id = ?")).
		WillReturnError(&mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"})
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 7, 3, false, EventPatch{CategoryID: &cat})
	require.ErrorIs(t, err, model.ErrCategoryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteCascadeReleasesSeats(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE id=?")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(q("SET e.available_seats = LEAST(e.total_seats, e.available_seats + x.n)")).
		WithArgs(9, 9).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("SET s.is_booked = FALSE")).
		WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec(q("DELETE FROM events WHERE organizer_id=?")).
		WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("DELETE FROM users WHERE id=?")).
		WithArgs(9).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.DeleteCascade(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteCascadeRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	boom := errors.New("lock wait timeout")

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE id=?")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(q("SET e.available_seats = LEAST(e.total_seats, e.available_seats + x.n)")).
		WithArgs(9, 9).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(q("SET s.is_booked = FALSE")).WithArgs(9).WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), 9)
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserDeleteCascadeUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT COUNT(*) FROM users WHERE id=?")).WithArgs(9).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectRollback()

	require.ErrorIs(t, repo.DeleteCascade(context.Background(), 9), model.ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec(q("INSERT INTO users")).
		WithArgs("Ana", "ana@example.com", nil, sqlmock.AnyArg(), model.RoleUser).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	_, err := repo.Create(context.Background(), NewUser{Name: " Ana ", Email: "ANA@example.com ", Password: "secret123"}, 4)
	require.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterFailedLoginLocks(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)
	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(q("UPDATE users SET failed_login_attempts=?")).
		WithArgs(2, nil, 9).WillReturnResult(sqlmock.NewResult(0, 1))
	locked, err := repo.RegisterFailedLogin(context.Background(), model.User{ID: 9, FailedLoginAttempts: 1}, 5, 15*time.Minute, now)
	require.NoError(t, err)
	assert.False(t, locked)

	mock.ExpectExec(q("UPDATE users SET failed_login_attempts=?")).
		WithArgs(0, now.Add(15*time.Minute), 9).WillReturnResult(sqlmock.NewResult(0, 1))
	locked, err = repo.RegisterFailedLogin(context.Background(), model.User{ID: 9, FailedLoginAttempts: 4}, 5, 15*time.Minute, now)
	require.NoError(t, err)
	assert.True(t, locked)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")).WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(5, exp, nil))
	mock.ExpectExec(q("UPDATE refresh_tokens SET revoked_at=NOW()")).WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("INSERT INTO refresh_tokens")).WithArgs(5, "new", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	uid, err := repo.Rotate(context.Background(), "old", "new", exp)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), uid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotateRevoked(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	revoked := time.Now().Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectQuery(q("SELECT user_id, expires_at, revoked_at FROM refresh_tokens")).WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(5, time.Now().Add(time.Hour), revoked))
	mock.ExpectRollback()

	_, err := repo.Rotate(context.Background(), "old", "new", time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrTokenInvalid)
	assert.NoError(t, mock.ExpectationsWereMet())
}
