package domain

import "time"

// Category groups products. Only the name takes part in search.
type Category struct {
	ID          int64
	Name        string
	ImageURL    *string
	Description *string
	CreatedAt   *time.Time
}
