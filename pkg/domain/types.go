package domain

import (
	"encoding/json"
	"time"
)

// AI answer styles stored on the user profile.
const (
	PreferenceSimple    = "simple"
	PreferenceTechnical = "technical"
)

// User is an account holder. Analyses, machines, and chat data are keyed by
// the user's email rather than a join table, mirroring the deployment this
// service replaces.
type User struct {
	ID                  uint
	Email               string
	PasswordHash        string
	Name                string
	Role                string
	Company             string
	AlertNotifications  bool
	ReportNotifications bool
	AIPreference        string
	CreatedAt           time.Time
}

// Machine is a registered piece of equipment belonging to one user.
type Machine struct {
	ID          uint
	UserEmail   string
	Name        string
	Brand       string
	Model       string
	Category    string
	InstallDate string
}

// Diagnosis is the structured outcome of one model call. It is persisted as
// an opaque JSON document on the analysis record.
type Diagnosis struct {
	Diagnosis     string   `json:"diagnosis"`
	Confidence    string   `json:"confidence"`
	Description   string   `json:"description"`
	EstimatedCost string   `json:"estimated_cost"`
	RepairTime    string   `json:"repair_time"`
	Steps         []string `json:"steps"`
}

// AnalysisRecord is one persisted diagnostic outcome. Records are immutable
// once written and only removed by account deletion.
type AnalysisRecord struct {
	ID           uint
	UserEmail    string
	MachineLabel string
	MachineID    *uint
	Diagnosis    string
	Confidence   string
	Details      json.RawMessage
	AudioPath    string
	CreatedAt    time.Time
}

// ChatSession is a titled container for an ordered message sequence.
type ChatSession struct {
	ID        uint
	UserEmail string
	Title     string
	CreatedAt time.Time
}

// ChatMessage is one side of a chat exchange. Messages are append-only and
// ordered by their monotonic id. SessionID is nil for legacy unscoped rows.
type ChatMessage struct {
	ID        uint
	SessionID *uint
	UserEmail string
	Role      string
	Content   string
	CreatedAt time.Time
}
