package model

import "time"

// Notification types.
const (
	NotificationMilestoneChanged = "MILESTONE_CHANGED"
)

// NotificationBody is the typed payload of a notification.
type NotificationBody struct {
	Type    string         `json:"type"`
	Content map[string]any `json:"content"`
}

// Notification is a message delivered to a user's inbox.
type Notification struct {
	NotificationID string           `json:"notificationID"`
	UserID         int              `json:"userID"`
	Title          string           `json:"title"`
	Body           NotificationBody `json:"body"`
	Read           bool             `json:"read"`
	Sent           time.Time        `json:"sent"`
}

// WebhookEventType is the closed set of outbound webhook events.
type WebhookEventType string

const (
	WebhookClassUpdate       WebhookEventType = "class-update/v1"
	WebhookGoalsAchieved     WebhookEventType = "goals-achieved/v1"
	WebhookMilestoneAchieved WebhookEventType = "milestone-achieved/v1"
	WebhookStatus            WebhookEventType = "status/v1"
)

// WebhookEvent is emitted to external listeners.
type WebhookEvent struct {
	Type    WebhookEventType `json:"type"`
	Content any              `json:"content"`
}

type ClassUpdateContent struct {
	UserID   int    `json:"userID"`
	Game     string `json:"game"`
	Playtype string `json:"playtype"`
	Set      string `json:"set"`
	Old      *int   `json:"old"`
	New      int    `json:"new"`
}

type GoalsAchievedContent struct {
	UserID int              `json:"userID"`
	Goals  []GoalImportInfo `json:"goals"`
}

type MilestoneAchievedContent struct {
	UserID      int    `json:"userID"`
	MilestoneID string `json:"milestoneID"`
	Game        string `json:"game"`
	Playtype    string `json:"playtype"`
}

type StatusContent struct {
	ServerVersion string    `json:"serverVersion"`
	StartTime     time.Time `json:"startTime"`
	Status        string    `json:"status"`
}
