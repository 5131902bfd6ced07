package domain

import "time"

// Project represents a Toggl project in the domain layer.
type Project struct {
	ID          int64
	WorkspaceID int64
	Name        string
	Active      bool
	ClientID    *int64
	At          time.Time // Last update timestamp from Toggl
}

// Client is a Toggl client. Projects belong to at most one client.
type Client struct {
	ID          int64
	WorkspaceID int64
	Name        string
}

// User is the authenticated Toggl account.
type User struct {
	ID                 int64
	Email              string
	Fullname           string
	DefaultWorkspaceID int64
}
