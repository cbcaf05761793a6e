// internal/models/user.go
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location is a GeoJSON point: coordinates are [longitude, latitude].
type Location struct {
	Type        string    `bson:"type" json:"type" validate:"required"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" validate:"required,len=2"`
}

func NewPoint(lng, lat float64) *Location {
	return &Location{Type: "Point", Coordinates: []float64{lng, lat}}
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Email        string             `bson:"email" json:"email" validate:"required,email"`
	Phone        string             `bson:"phone" json:"phone" validate:"omitempty,min=10,max=17"`
	PasswordHash string             `bson:"password_hash" json:"-"`

	FirstName string `bson:"first_name" json:"first_name" validate:"required,min=2,max=50"`
	LastName  string `bson:"last_name" json:"last_name" validate:"required,min=2,max=50"`

	// Role and official placement
	Role       UserRole            `bson:"role" json:"role"`
	LGAID      *primitive.ObjectID `bson:"lga_id,omitempty" json:"lga_id,omitempty"`
	Department string              `bson:"department,omitempty" json:"department,omitempty"`
	Position   string              `bson:"position,omitempty" json:"position,omitempty"`

	// Identity verification
	NINVerified         bool       `bson:"nin_verified" json:"nin_verified"`
	NINVerificationDate *time.Time `bson:"nin_verification_date,omitempty" json:"nin_verification_date,omitempty"`
	BVNVerified         bool       `bson:"bvn_verified" json:"bvn_verified"`
	BVNVerificationDate *time.Time `bson:"bvn_verification_date,omitempty" json:"bvn_verification_date,omitempty"`

	IsBlocked bool `bson:"is_blocked" json:"is_blocked"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
	DeletedAt   *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

func (u *User) GetFullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// IsOfficial reports whether the user holds any government role.
func (u *User) IsOfficial() bool {
	return u.Role != RoleCitizen && u.Role.IsValid()
}
