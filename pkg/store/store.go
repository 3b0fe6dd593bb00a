package store

import (
	"time"

	"echomechanic/pkg/domain"
)

// Store defines persistence operations for users, machines, analyses, and
// chat sessions/messages.
type Store interface {
	// users
	SaveUser(domain.User) error
	HasUserEmail(email string) (bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	UpdateUserProfile(email, name, preference string, alerts, reports bool) (bool, error)
	UpdateUserPassword(email, passwordHash string) (bool, error)
	DeleteUser(email string) error

	// machines
	AddMachine(domain.Machine) (uint, error)
	ListMachinesByUser(email string) ([]domain.Machine, error)
	GetMachine(id uint) (domain.Machine, bool, error)

	// analyses
	SaveAnalysis(domain.AnalysisRecord) (uint, error)
	GetAnalysis(id uint) (domain.AnalysisRecord, bool, error)
	ListAnalysesByUser(email string) ([]domain.AnalysisRecord, error)
	RecentAnalyses(email string, limit int) ([]domain.AnalysisRecord, error)
	ListAnalysesSince(email string, cutoff time.Time) ([]domain.AnalysisRecord, error)

	// chat sessions
	CreateSession(email, title string, createdAt time.Time) (uint, error)
	ListSessionsByUser(email string) ([]domain.ChatSession, error)
	RenameSession(id uint, email, title string) (bool, error)
	DeleteSession(id uint, email string) (bool, error)
	SetSessionTitle(id uint, title string) error
	SessionMessageCount(id uint) (int64, error)

	// chat messages
	AppendChatMessage(domain.ChatMessage) error
	ListSessionMessages(sessionID uint) ([]domain.ChatMessage, error)
	ListChatHistory(email string, sessionID *uint) ([]domain.ChatMessage, error)
}
