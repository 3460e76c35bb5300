// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignedImage is a copy of a gallery image placed into a page section.
// ImageURL and Title are copied at assignment time. SourceID only records
// where the copy came from; deleting the source never touches the copy.
type AssignedImage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Category   string             `bson:"category" json:"category"`
	CategoryCI string             `bson:"category_ci" json:"-"`
	Title      string             `bson:"title,omitempty" json:"title,omitempty"`
	ImageURL   string             `bson:"image_url" json:"image_url"`
	SourceID   string             `bson:"source_id,omitempty" json:"source_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
