package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account document in the users collection.
// The password hash is never serialized to JSON; repository reads exclude
// it unless the caller explicitly asks for credential verification.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password,omitempty" json:"-"`
	Role           string             `bson:"role" json:"role"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	DetectionCount int64              `bson:"detectionCount" json:"detectionCount"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsAdmin reports whether the user holds the elevated role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserUpdate carries partial updates for a user document. Nil fields are
// left untouched.
type UserUpdate struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

// UserStats summarizes the users collection for the admin panel.
type UserStats struct {
	TotalUsers  int64 `bson:"totalUsers" json:"totalUsers"`
	ActiveUsers int64 `bson:"activeUsers" json:"activeUsers"`
	AdminUsers  int64 `bson:"adminUsers" json:"adminUsers"`
}

// ListUsersFilter narrows admin user listings.
type ListUsersFilter struct {
	// Search matches name or email, case-insensitive.
	Search   string
	Role     string
	IsActive *bool
	Page     int
	Limit    int
}
