package models

import "time"

// OrderEvent is pushed on the order-events channel after every order
// mutation. List views re-fetch the whole collection on receipt; there is
// no incremental merge.
type OrderEvent struct {
	OrderID     string      `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      int64       `json:"user_id"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
	At          time.Time   `json:"at"`
}

// CachedProfile is a role-cache entry. FetchedAt travels with the value so
// callers can tell how stale a hit is; the cache TTL bounds it.
type CachedProfile struct {
	User      User      `json:"user"`
	FetchedAt time.Time `json:"fetched_at"`
}
