package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventSearchQuery defines filters and pagination for the public event
// listing.  Zero values mean "no filter".
type EventSearchQuery struct {
	Search     string
	CategoryID uint64
	DateFrom   *time.Time
	DateTo     *time.Time
	MinPrice   *model.Money
	MaxPrice   *model.Money
	SortBy     string
	Page       int
	Limit      int
}

var eventSortColumns = map[string]string{
	"date":  "e.event_date",
	"price": "e.price_cents",
	"title": "e.title",
}

// orderBy turns sort_by ("date", "-price", ...) into an ORDER BY clause.
// Unknown keys fall back to the event date.
func (q EventSearchQuery) orderBy() string {
	key := strings.ToLower(strings.TrimSpace(q.SortBy))
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = key[1:]
	}
	col, ok := eventSortColumns[key]
	if !ok {
		col = "e.event_date"
	}
	return col + " " + dir + ", e.id " + dir
}

// Search lists active events matching q and returns the page plus the
// total number of matches.
func (r *EventRepo) Search(ctx context.Context, q EventSearchQuery) ([]model.EventSummary, int64, error) {
	where := []string{"e.is_active = TRUE"}
	args := []any{}

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(LOWER(e.title) LIKE ? OR LOWER(e.description) LIKE ? OR LOWER(e.location) LIKE ?)")
		like := "%" + strings.ToLower(s) + "%"
		args = append(args, like, like, like)
	}
	if q.CategoryID > 0 {
		where = append(where, "e.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.DateFrom != nil {
		where = append(where, "e.event_date >= ?")
		args = append(args, q.DateFrom.UTC())
	}
	if q.DateTo != nil {
		where = append(where, "e.event_date <= ?")
		args = append(args, q.DateTo.UTC())
	}
	if q.MinPrice != nil {
		where = append(where, "e.price_cents >= ?")
		args = append(args, *q.MinPrice)
	}
	if q.MaxPrice != nil {
		where = append(where, "e.price_cents <= ?")
		args = append(args, *q.MaxPrice)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events e WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := q.Limit
	offset := (q.Page - 1) * q.Limit
	argsData := append(append([]any{}, args...), limit, offset)
	rows, err := r.db.QueryContext(ctx,
		summarySelect+` WHERE `+cond+` ORDER BY `+q.orderBy()+` LIMIT ? OFFSET ?`, argsData...)
	if err != nil {
		return nil, 0, err
	}
	out, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
