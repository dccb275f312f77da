// Package notify is the insert-only notification outbox.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/staffhub/portal/internal/store"
)

const Table = "notifications"

// Notification types.
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

type Notification struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	UserID              string    `bson:"userId" json:"userId"`
	Title               string    `bson:"title" json:"title"`
	Message             string    `bson:"message" json:"message"`
	Type                string    `bson:"type" json:"type"`
	RelatedResourceType string    `bson:"relatedResourceType,omitempty" json:"relatedResourceType,omitempty"`
	RelatedResourceID   string    `bson:"relatedResourceId,omitempty" json:"relatedResourceId,omitempty"`
	CreatedAt           time.Time `bson:"createdAt" json:"createdAt"`
}

// Sink durably records a notification for a user.
type Sink interface {
	Notify(ctx context.Context, n Notification) error
}

// Outbox writes notifications to the notifications table.
type Outbox struct {
	gw  store.Gateway
	now func() time.Time
}

func NewOutbox(gw store.Gateway) *Outbox {
	return &Outbox{gw: gw, now: time.Now}
}

func (o *Outbox) Notify(ctx context.Context, n Notification) error {
	if n.UserID == "" {
		return errors.New("notification without recipient")
	}
	if n.Type == "" {
		n.Type = TypeInfo
	}
	n.ID = ""
	n.CreatedAt = o.now().UTC()
	rec, err := store.Encode(n)
	if err != nil {
		return err
	}
	if _, err := o.gw.Insert(ctx, Table, rec); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// ForUser lists a user's notifications, newest first.
func (o *Outbox) ForUser(ctx context.Context, userID string, limit int64) ([]*Notification, error) {
	recs, err := o.gw.Find(ctx, Table, store.Eq("userId", userID).OrderBy("createdAt", true).Take(limit))
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[Notification](recs)
}
