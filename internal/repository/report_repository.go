package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ReportRepo runs the admin aggregation queries.  Revenue counts only
// confirmed bookings.
type ReportRepo struct {
	db *sql.DB
}

// NewReportRepo returns a ReportRepo bound to db.
func NewReportRepo(db *sql.DB) *ReportRepo { return &ReportRepo{db: db} }

// Dashboard returns global counters and the five latest confirmed bookings.
func (r *ReportRepo) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	var d model.Dashboard
	err := r.db.QueryRowContext(ctx,
		`SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM bookings WHERE status = 'confirmed'),
			(SELECT COALESCE(SUM(total_amount_cents), 0) FROM bookings WHERE status = 'confirmed')`).
		Scan(&d.Stats.Users, &d.Stats.Events, &d.Stats.Bookings, &d.Stats.Revenue)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.event_id, e.title, u.name, b.total_amount_cents, b.booking_date
		 FROM bookings b
		 JOIN events e ON e.id = b.event_id
		 JOIN users u  ON u.id = b.user_id
		 WHERE b.status = 'confirmed'
		 ORDER BY b.booking_date DESC, b.id DESC
		 LIMIT 5`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	d.RecentBookings = []model.RecentBooking{}
	for rows.Next() {
		var rb model.RecentBooking
		if err := rows.Scan(&rb.ID, &rb.EventID, &rb.EventTitle, &rb.UserName, &rb.TotalAmount, &rb.BookingDate); err != nil {
			return nil, err
		}
		d.RecentBookings = append(d.RecentBookings, rb)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Report aggregates confirmed bookings whose booking_date falls in
// [from, to+1day).
func (r *ReportRepo) Report(ctx context.Context, from, to time.Time) (*model.Report, error) {
	start := from.UTC()
	end := to.UTC().AddDate(0, 0, 1)
	rep := &model.Report{
		StartDate:          from.Format("2006-01-02"),
		EndDate:            to.Format("2006-01-02"),
		RevenueByMonth:     []model.MonthlyRevenue{},
		BookingsByCategory: []model.CategoryRevenue{},
		TopEvents:          []model.EventRanking{},
		TopOrganizers:      []model.OrganizerRanking{},
	}

	if err := queryRows(ctx, r.db,
		`SELECT DATE_FORMAT(b.booking_date, '%Y-%m') AS month,
			COUNT(DISTINCT b.id), COALESCE(SUM(b.total_amount_cents), 0)
		 FROM bookings b
		 WHERE b.status = 'confirmed' AND b.booking_date >= ? AND b.booking_date < ?
		 GROUP BY month
		 ORDER BY month ASC`,
		[]any{start, end}, func(rows *sql.Rows) error {
			var m model.MonthlyRevenue
			if err := rows.Scan(&m.Month, &m.Bookings, &m.Revenue); err != nil {
				return err
			}
			rep.RevenueByMonth = append(rep.RevenueByMonth, m)
			return nil
		}); err != nil {
		return nil, err
	}

	if err := queryRows(ctx, r.db,
		`SELECT c.name, COUNT(DISTINCT e.id), COUNT(DISTINCT b.id), COALESCE(SUM(b.total_amount_cents), 0) AS revenue
		 FROM categories c
		 LEFT JOIN events e ON e.category_id = c.id
		 LEFT JOIN bookings b ON b.event_id = e.id AND b.status = 'confirmed'
			AND b.booking_date >= ? AND b.booking_date < ?
		 GROUP BY c.id, c.name
		 ORDER BY revenue DESC`,
		[]any{start, end}, func(rows *sql.Rows) error {
			var c model.CategoryRevenue
			if err := rows.Scan(&c.Category, &c.Events, &c.Bookings, &c.Revenue); err != nil {
				return err
			}
			rep.BookingsByCategory = append(rep.BookingsByCategory, c)
			return nil
		}); err != nil {
		return nil, err
	}

	if err := queryRows(ctx, r.db,
		`SELECT e.id, e.title, COUNT(DISTINCT b.id) AS bookings, COALESCE(SUM(b.total_amount_cents), 0) AS revenue
		 FROM events e
		 JOIN bookings b ON b.event_id = e.id
		 WHERE b.status = 'confirmed' AND b.booking_date >= ? AND b.booking_date < ?
		 GROUP BY e.id, e.title
		 ORDER BY revenue DESC
		 LIMIT 10`,
		[]any{start, end}, func(rows *sql.Rows) error {
			var e model.EventRanking
			if err := rows.Scan(&e.EventID, &e.Title, &e.Bookings, &e.Revenue); err != nil {
				return err
			}
			rep.TopEvents = append(rep.TopEvents, e)
			return nil
		}); err != nil {
		return nil, err
	}

	if err := queryRows(ctx, r.db,
		`SELECT u.id, u.name, COUNT(DISTINCT e.id), COUNT(DISTINCT b.id) AS total_bookings,
			COALESCE(SUM(b.total_amount_cents), 0) AS total_revenue
		 FROM users u
		 JOIN events e ON e.organizer_id = u.id
		 JOIN bookings b ON b.event_id = e.id
		 WHERE u.role = 'organizer' AND b.status = 'confirmed'
			AND b.booking_date >= ? AND b.booking_date < ?
		 GROUP BY u.id, u.name
		 ORDER BY total_revenue DESC
		 LIMIT 10`,
		[]any{start, end}, func(rows *sql.Rows) error {
			var o model.OrganizerRanking
			if err := rows.Scan(&o.UserID, &o.Name, &o.TotalEvents, &o.TotalBookings, &o.TotalRevenue); err != nil {
				return err
			}
			rep.TopOrganizers = append(rep.TopOrganizers, o)
			return nil
		}); err != nil {
		return nil, err
	}
	return rep, nil
}

func queryRows(ctx context.Context, q DBTX, query string, args []any, each func(*sql.Rows) error) error {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := each(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
