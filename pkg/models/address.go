package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AddressLabelHome  = "home"
	AddressLabelWork  = "work"
	AddressLabelOther = "other"
)

// Address belongs to a user. At most one address per user carries the
// default flag; the repository clears the previous default on promotion.
type Address struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Label     string    `json:"label"`
	DoorNo    string    `json:"door_no"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	State     string    `json:"state"`
	Pincode   string    `json:"pincode"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidAddressLabel(label string) bool {
	switch label {
	case AddressLabelHome, AddressLabelWork, AddressLabelOther:
		return true
	}
	return false
}

func (a *Address) Line() string {
	return a.DoorNo + ", " + a.Street + ", " + a.City + ", " + a.State + " - " + a.Pincode
}
