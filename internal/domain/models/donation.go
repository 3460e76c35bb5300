// internal/domain/models/donation.go
package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Donation is a completed gift recorded after the payment gateway confirms it.
// PaymentID is the gateway's identifier and is unique across the collection.
type Donation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PaymentID  string             `bson:"payment_id" json:"payment_id"`
	OrderID    string             `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Amount     int64              `bson:"amount" json:"amount"` // minor units (paise, cents)
	Currency   string             `bson:"currency" json:"currency"`
	DonorName  string             `bson:"donor_name" json:"donor_name"`
	DonorEmail string             `bson:"donor_email,omitempty" json:"donor_email,omitempty"`
	DonorPhone string             `bson:"donor_phone,omitempty" json:"donor_phone,omitempty"`
	Message    string             `bson:"message,omitempty" json:"message,omitempty"`
	Status     string             `bson:"status" json:"status"` // captured
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// DisplayAmount formats the minor-unit amount with two decimals.
func (d Donation) DisplayAmount() string {
	return fmt.Sprintf("%s %d.%02d", d.Currency, d.Amount/100, d.Amount%100)
}

// DonationStatusCaptured marks a verified payment.
const DonationStatusCaptured = "captured"
