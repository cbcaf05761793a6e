// internal/models/location.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LGA is a Local Government Area of Abia State.
type LGA struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	Coordinates *Location          `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Ward is an administrative subdivision of an LGA.
type Ward struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	LGAID       primitive.ObjectID `bson:"lga_id" json:"lga_id" validate:"required"`
	Coordinates *Location          `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// Landmark is a well-known point citizens reference when an exact address is
// hard to give, e.g. "Ariaria Market Stall 5".
type Landmark struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required,max=100"`
	LGAID       primitive.ObjectID `bson:"lga_id" json:"lga_id" validate:"required"`
	Coordinates *Location          `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
