// internal/domain/models/testimonial.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PhotoKind records how a testimonial's picture was chosen.
type PhotoKind string

const (
	PhotoNone   PhotoKind = "none"
	PhotoUpload PhotoKind = "upload"
	PhotoLink   PhotoKind = "link"
	PhotoIcon   PhotoKind = "icon"
)

// Testimonial is a visitor- or staff-submitted quote shown on the public site.
// Pending testimonials are hidden from the public listing until an admin
// approves them.
type Testimonial struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Role      string             `bson:"role,omitempty" json:"role,omitempty"` // e.g. "Parent", "Volunteer"
	Body      string             `bson:"body" json:"body"`
	Rating    int                `bson:"rating" json:"rating"` // 1-5
	ImageURL  string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	PhotoKind PhotoKind          `bson:"photo_kind,omitempty" json:"photo_kind,omitempty"`
	Pending   bool               `bson:"pending" json:"pending"`

	SubmittedIP string `bson:"submitted_ip,omitempty" json:"-"`

	ApprovedAt     *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	ApprovedByName string     `bson:"approved_by_name,omitempty" json:"approved_by_name,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Stars returns a slice sized to the rating, for range loops in templates.
func (t Testimonial) Stars() []struct{} {
	n := t.Rating
	if n < 0 {
		n = 0
	}
	if n > MaxRating {
		n = MaxRating
	}
	return make([]struct{}, n)
}

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)
