package models

import "time"

// Role names.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
	RoleGuest   = "guest"
)

// UserRole maps a user id to a role. Permissions are derived from the role
// and stored alongside it for readers that only see the document.
type UserRole struct {
	ID          string    `bson:"_id" json:"id"`
	Role        string    `bson:"role" json:"role"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// AdminUser is a persisted entry of the admin email allow-list.
type AdminUser struct {
	Base      `bson:",inline"`
	Email     string    `bson:"email" json:"email"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
