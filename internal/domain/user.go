package domain

import (
	"time"
)

// Tier decides the monthly generation ceiling of a user.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// User is the slice of the account record this service reads and mutates.
// The id is the opaque identity carried by the bearer token (or the anonymous
// intake flow), so it is stored as a string rather than an ObjectID.
type User struct {
	ID    string `bson:"_id" json:"id"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Tier  Tier   `bson:"tier" json:"tier"`

	// --- Generation credit ---
	// Mutated only by the credit service.
	GenerationsThisMonth int       `bson:"generationsThisMonth" json:"generationsThisMonth"`
	ResetAt              time.Time `bson:"resetAt" json:"resetAt"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsPremium() bool {
	return u.Tier == TierPremium
}

// CreditStatus is the outcome of evaluating a user's monthly quota.
// Limit 0 with Unlimited set means there is no ceiling.
type CreditStatus struct {
	Allowed   bool      `json:"allowed"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Unlimited bool      `json:"unlimited"`
	Tier      Tier      `json:"tier"`
	ResetAt   time.Time `json:"resetAt"`
}
