package model

import "time"

// DashboardStats holds the platform-wide counters shown to administrators.
type DashboardStats struct {
	Users    int   `json:"users"`
	Events   int   `json:"events"`
	Bookings int   `json:"bookings"`
	Revenue  Money `json:"revenue"`
}

// RecentBooking is a confirmed booking listed on the dashboard.
type RecentBooking struct {
	ID          uint64    `json:"id"`
	EventID     uint64    `json:"event_id"`
	EventTitle  string    `json:"event_title"`
	UserName    string    `json:"user_name"`
	TotalAmount Money     `json:"total_amount"`
	BookingDate time.Time `json:"booking_date"`
}

// Dashboard is the admin landing page payload.
type Dashboard struct {
	Stats          DashboardStats  `json:"stats"`
	RecentBookings []RecentBooking `json:"recentBookings"`
}

// MonthlyRevenue is one row of the revenue-by-month report.
type MonthlyRevenue struct {
	Month    string `json:"month"`
	Bookings int    `json:"bookings"`
	Revenue  Money  `json:"revenue"`
}

// CategoryRevenue is one row of the bookings-by-category report.
type CategoryRevenue struct {
	Category string `json:"category"`
	Events   int    `json:"events"`
	Bookings int    `json:"bookings"`
	Revenue  Money  `json:"revenue"`
}

// EventRanking is one row of the top events report.
type EventRanking struct {
	EventID  uint64 `json:"event_id"`
	Title    string `json:"title"`
	Bookings int    `json:"bookings"`
	Revenue  Money  `json:"revenue"`
}

// OrganizerRanking is one row of the top organizers report.
type OrganizerRanking struct {
	UserID        uint64 `json:"user_id"`
	Name          string `json:"name"`
	TotalEvents   int    `json:"total_events"`
	TotalBookings int    `json:"total_bookings"`
	TotalRevenue  Money  `json:"total_revenue"`
}

// Report bundles the admin reports for a date window.
type Report struct {
	StartDate          string             `json:"start_date"`
	EndDate            string             `json:"end_date"`
	RevenueByMonth     []MonthlyRevenue   `json:"revenueByMonth"`
	BookingsByCategory []CategoryRevenue  `json:"bookingsByCategory"`
	TopEvents          []EventRanking     `json:"topEvents"`
	TopOrganizers      []OrganizerRanking `json:"topOrganizers"`
}
