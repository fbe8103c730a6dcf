package models

import (
	"time"
)

// Subscription mirrors the payment provider's subscription for a user.
type Subscription struct {
	CustomerID        string     `bson:"customerId,omitempty" json:"customerId,omitempty"`
	SubscriptionID    string     `bson:"subscriptionId,omitempty" json:"subscriptionId,omitempty"`
	Status            string     `bson:"status,omitempty" json:"status,omitempty"`
	PlanKey           string     `bson:"planKey,omitempty" json:"planKey,omitempty"`
	CurrentPeriodEnd  *time.Time `bson:"currentPeriodEnd,omitempty" json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd bool       `bson:"cancelAtPeriodEnd" json:"cancelAtPeriodEnd"`
	UpdatedAt         time.Time  `bson:"updatedAt" json:"updatedAt"`
}

// User is the profile of an account holder. ID is the auth subject id.
type User struct {
	Base           `bson:",inline"`
	Email          string        `bson:"email" json:"email"`
	DisplayName    string        `bson:"displayName" json:"displayName"`
	CompanyName    string        `bson:"companyName" json:"companyName"`
	CompanyAddress string        `bson:"companyAddress" json:"companyAddress"`
	CompanyPhone   string        `bson:"companyPhone" json:"companyPhone"`
	Plan           string        `bson:"plan" json:"plan"`
	Subscription   *Subscription `bson:"subscription,omitempty" json:"subscription,omitempty"`
	PasswordHash   string        `bson:"passwordHash" json:"-"` // Store hash, not plaintext
	Timestamps     `bson:",inline"`
}

// CustomerID returns the stored payment provider customer id, if any.
func (u *User) CustomerID() string {
	if u.Subscription == nil {
		return ""
	}
	return u.Subscription.CustomerID
}

// ProfileInput carries the editable fields of a profile.
type ProfileInput struct {
	DisplayName    string `json:"displayName" validate:"max=200"`
	CompanyName    string `json:"companyName" validate:"max=200"`
	CompanyAddress string `json:"companyAddress" validate:"max=1000"`
	CompanyPhone   string `json:"companyPhone" validate:"omitempty,phone"`
}
