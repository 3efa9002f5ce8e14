package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is owned by the identity provider; this service only reads it.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name,omitempty" json:"name"`
	Email         string             `bson:"email" json:"email"`
	Image         string             `bson:"image,omitempty" json:"image,omitempty"`
	EmailVerified *time.Time         `bson:"emailVerified,omitempty" json:"-"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty" json:"-"`
	UpdatedAt     time.Time          `bson:"updatedAt,omitempty" json:"-"`
}
