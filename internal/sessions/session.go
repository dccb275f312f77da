package sessions

import "time"

// Session is a refresh session issued after a successful sign-in.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	UserID       string    `bson:"userId" json:"userId"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }
