package jira

import "time"

// Issue is the slice of a Jira issue the bot cares about.
type Issue struct {
	Key      string
	Summary  string
	Status   string
	Type     string
	Assignee string // display name, "" when unassigned
	Resolved time.Time
}

// User identifies the authenticated Jira account (connectivity probe).
type User struct {
	DisplayName string
	Email       string
}
