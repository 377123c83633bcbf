package entity

import "time"

// Team groups accounts inside a tenant. Membership is the sole authorization
// criterion for reading team data.
type Team struct {
	ID        string
	Slug      string
	Name      string
	CreatedAt time.Time
}
