package models

// ClientStatus marks whether a client is still billed.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Address is a postal address.
type Address struct {
	Street     string `bson:"street" json:"street" validate:"max=200"`
	City       string `bson:"city" json:"city" validate:"max=100"`
	State      string `bson:"state" json:"state" validate:"max=100"`
	PostalCode string `bson:"postalCode" json:"postalCode" validate:"max=20"`
	Country    string `bson:"country" json:"country" validate:"max=100"`
}

// Client is a customer of a user.
type Client struct {
	Base       `bson:",inline"`
	UserID     string       `bson:"userId" json:"userId"`
	Name       string       `bson:"name" json:"name"`
	Email      string       `bson:"email" json:"email"`
	Phone      string       `bson:"phone" json:"phone"`
	Address    Address      `bson:"address" json:"address"`
	Status     ClientStatus `bson:"status" json:"status"`
	Timestamps `bson:",inline"`
}

// ClientInput carries the editable fields of a client.
type ClientInput struct {
	Name    string       `json:"name" validate:"required,max=200"`
	Email   string       `json:"email" validate:"omitempty,email"`
	Phone   string       `json:"phone" validate:"omitempty,phone"`
	Address Address      `json:"address"`
	Status  ClientStatus `json:"status" validate:"omitempty,oneof=active inactive"`
}
