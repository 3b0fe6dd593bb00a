package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID                  uint   `gorm:"primaryKey"`
	Email               string `gorm:"uniqueIndex;not null"`
	PasswordHash        string `gorm:"not null"`
	Name                string
	Role                string
	Company             string
	AlertNotifications  bool   `gorm:"not null;default:true"`
	ReportNotifications bool   `gorm:"not null;default:false"`
	AIPreference        string `gorm:"column:ai_preference;not null;default:simple"`
	CreatedAt           time.Time
}

type MachineModel struct {
	ID          uint   `gorm:"primaryKey"`
	UserEmail   string `gorm:"index;not null"`
	Name        string `gorm:"not null"`
	Brand       string
	Model       string
	Category    string
	InstallDate string
	CreatedAt   time.Time
}

type AnalysisModel struct {
	ID           uint   `gorm:"primaryKey"`
	UserEmail    string `gorm:"index;not null"`
	MachineLabel string `gorm:"not null"`
	MachineID    *uint
	Diagnosis    string
	Confidence   string
	Details      datatypes.JSON
	AudioPath    string
	CreatedAt    time.Time `gorm:"not null;index"`
}

type ChatSessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserEmail string `gorm:"index;not null"`
	Title     string `gorm:"not null"`
	CreatedAt time.Time
}

type ChatMessageModel struct {
	ID        uint  `gorm:"primaryKey"`
	SessionID *uint `gorm:"index"`
	UserEmail string `gorm:"index;not null"`
	Role      string `gorm:"not null"`
	Content   string `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}
