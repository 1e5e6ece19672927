package domain

import "time"

// ProjectStatus is the closed lifecycle set for projects.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectOnHold    ProjectStatus = "on-hold"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectOnHold:
		return true
	}
	return false
}

type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Deadline    time.Time     `json:"deadline"`
	Status      ProjectStatus `json:"status"`
	LeadID      string        `json:"lead"`
	Developers  []string      `json:"assignedDevelopers"` // user ids
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}
