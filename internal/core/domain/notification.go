package domain

import "time"

type NotificationKind string

const (
	NotificationSuccess     NotificationKind = "default"
	NotificationDestructive NotificationKind = "destructive"
)

type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"created_at"`
}
