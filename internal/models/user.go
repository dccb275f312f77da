package models

import "time"

// User represents a portal user (mapped from Keycloak claims)
type User struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Sub        string    `bson:"sub" json:"sub"` // OIDC subject
	Email      string    `bson:"email" json:"email"`
	Name       string    `bson:"name" json:"name"`
	Role       string    `bson:"role" json:"role"`
	Department string    `bson:"department,omitempty" json:"department,omitempty"`
	IsActive   bool      `bson:"isActive" json:"isActive"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DisplayName falls back to the email when no name is known.
func (u *User) DisplayName() string {
	if u == nil {
		return "A staff member"
	}
	if u.Name != "" {
		return u.Name
	}
	if u.Email != "" {
		return u.Email
	}
	return "A staff member"
}
