package models

import "time"

// PlanTier names a billing plan.
type PlanTier string

const (
	PlanFree PlanTier = "FREE"
	PlanPro  PlanTier = "PRO"
)

// User is a bot owner together with their request quota.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Plan         PlanTier  `json:"plan"`
	RequestsLeft int64     `json:"requestsLeft"`
	CreatedAt    time.Time `json:"createdAt"`
}
