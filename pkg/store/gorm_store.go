package store

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"echomechanic/pkg/domain"
)

// GormStore implements Store using GORM over Postgres or SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations. A postgres:// DSN
// selects the Postgres driver; anything else is treated as a SQLite file
// path, matching the single-node deployment this service replaces.
func NewGormStore(dsn string) (*GormStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database dsn required")
	}
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(openDialector(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&MachineModel{},
		&AnalysisModel{},
		&ChatSessionModel{},
		&ChatMessageModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func openDialector(dsn string) gorm.Dialector {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
		return postgres.Open(dsn)
	}
	return sqlite.Open(dsn)
}

// SaveUser registers a new user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(email string) (bool, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// UpdateUserProfile updates name, answer preference, and notification flags.
func (s *GormStore) UpdateUserProfile(email, name, preference string, alerts, reports bool) (bool, error) {
	res := s.db.Model(&UserModel{}).Where("email = ?", email).Updates(map[string]any{
		"name":                 name,
		"ai_preference":        preference,
		"alert_notifications":  alerts,
		"report_notifications": reports,
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// UpdateUserPassword replaces the stored credential hash.
func (s *GormStore) UpdateUserPassword(email, passwordHash string) (bool, error) {
	res := s.db.Model(&UserModel{}).Where("email = ?", email).Update("password_hash", passwordHash)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteUser removes the account and everything attributed to it: machines,
// analyses, chat sessions and their messages.
func (s *GormStore) DeleteUser(email string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChatMessageModel{}, "user_email = ?", email).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ChatSessionModel{}, "user_email = ?", email).Error; err != nil {
			return err
		}
		if err := tx.Delete(&AnalysisModel{}, "user_email = ?", email).Error; err != nil {
			return err
		}
		if err := tx.Delete(&MachineModel{}, "user_email = ?", email).Error; err != nil {
			return err
		}
		return tx.Delete(&UserModel{}, "email = ?", email).Error
	})
}

// AddMachine registers a machine for a user.
func (s *GormStore) AddMachine(m domain.Machine) (uint, error) {
	model := machineToModel(m)
	if err := s.db.Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListMachinesByUser returns a user's machines in insertion order.
func (s *GormStore) ListMachinesByUser(email string) ([]domain.Machine, error) {
	var models []MachineModel
	if err := s.db.Where("user_email = ?", email).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Machine, 0, len(models))
	for _, m := range models {
		res = append(res, machineFromModel(m))
	}
	return res, nil
}

// GetMachine returns one machine by id.
func (s *GormStore) GetMachine(id uint) (domain.Machine, bool, error) {
	var model MachineModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Machine{}, false, nil
		}
		return domain.Machine{}, false, err
	}
	return machineFromModel(model), true, nil
}

// SaveAnalysis persists one analysis record and returns its id.
func (s *GormStore) SaveAnalysis(rec domain.AnalysisRecord) (uint, error) {
	model := analysisToModel(rec)
	if err := s.db.Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// GetAnalysis returns one analysis record by id.
func (s *GormStore) GetAnalysis(id uint) (domain.AnalysisRecord, bool, error) {
	var model AnalysisModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.AnalysisRecord{}, false, nil
		}
		return domain.AnalysisRecord{}, false, err
	}
	return analysisFromModel(model), true, nil
}

// ListAnalysesByUser returns all analyses of a user, most recent first.
func (s *GormStore) ListAnalysesByUser(email string) ([]domain.AnalysisRecord, error) {
	return s.listAnalyses("id DESC", 0, "user_email = ?", email)
}

// RecentAnalyses returns up to limit analyses, most recent first.
func (s *GormStore) RecentAnalyses(email string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		return []domain.AnalysisRecord{}, nil
	}
	return s.listAnalyses("id DESC", limit, "user_email = ?", email)
}

// ListAnalysesSince returns analyses created at or after cutoff, most recent first.
func (s *GormStore) ListAnalysesSince(email string, cutoff time.Time) ([]domain.AnalysisRecord, error) {
	return s.listAnalyses("id DESC", 0, "user_email = ? AND created_at >= ?", email, cutoff)
}

func (s *GormStore) listAnalyses(order string, limit int, cond string, args ...any) ([]domain.AnalysisRecord, error) {
	var models []AnalysisModel
	tx := s.db.Where(cond, args...).Order(order)
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.AnalysisRecord, 0, len(models))
	for _, m := range models {
		res = append(res, analysisFromModel(m))
	}
	return res, nil
}

// CreateSession creates a chat session and returns its id.
func (s *GormStore) CreateSession(email, title string, createdAt time.Time) (uint, error) {
	model := ChatSessionModel{UserEmail: email, Title: title, CreatedAt: createdAt}
	if err := s.db.Create(&model).Error; err != nil {
		return 0, err
	}
	return model.ID, nil
}

// ListSessionsByUser returns a user's sessions, most recent first.
func (s *GormStore) ListSessionsByUser(email string) ([]domain.ChatSession, error) {
	var models []ChatSessionModel
	if err := s.db.Where("user_email = ?", email).Order("id DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ChatSession, 0, len(models))
	for _, m := range models {
		res = append(res, sessionFromModel(m))
	}
	return res, nil
}

// RenameSession updates the title when the session belongs to email.
// Returns false when the session is absent or owned by someone else.
func (s *GormStore) RenameSession(id uint, email, title string) (bool, error) {
	res := s.db.Model(&ChatSessionModel{}).
		Where("id = ? AND user_email = ?", id, email).
		Update("title", title)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteSession removes a session and its messages when owned by email.
// Messages are deleted before the session row; the ordering is part of the
// orphan-free contract, not an optimization.
func (s *GormStore) DeleteSession(id uint, email string) (bool, error) {
	owned := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ChatSessionModel{}).Where("id = ? AND user_email = ?", id, email).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if err := tx.Delete(&ChatMessageModel{}, "session_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ChatSessionModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		owned = true
		return nil
	})
	return owned, err
}

// SetSessionTitle updates a session title without an ownership check. Used
// by the orchestrator's internal title generation.
func (s *GormStore) SetSessionTitle(id uint, title string) error {
	return s.db.Model(&ChatSessionModel{}).Where("id = ?", id).Update("title", title).Error
}

// SessionMessageCount counts stored messages in a session.
func (s *GormStore) SessionMessageCount(id uint) (int64, error) {
	var count int64
	err := s.db.Model(&ChatMessageModel{}).Where("session_id = ?", id).Count(&count).Error
	return count, err
}

// AppendChatMessage records a message.
func (s *GormStore) AppendChatMessage(msg domain.ChatMessage) error {
	model := chatMessageToModel(msg)
	return s.db.Create(&model).Error
}

// ListSessionMessages returns a session's messages in chronological order.
func (s *GormStore) ListSessionMessages(sessionID uint) ([]domain.ChatMessage, error) {
	var models []ChatMessageModel
	if err := s.db.Where("session_id = ?", sessionID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return chatMessagesFromModels(models), nil
}

// ListChatHistory returns a user's messages in chronological order. With a
// session id it scopes to that session; without one it returns everything,
// legacy rows that predate sessions included.
func (s *GormStore) ListChatHistory(email string, sessionID *uint) ([]domain.ChatMessage, error) {
	tx := s.db.Where("user_email = ?", email)
	if sessionID != nil {
		tx = tx.Where("session_id = ?", *sessionID)
	}
	var models []ChatMessageModel
	if err := tx.Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return chatMessagesFromModels(models), nil
}

func chatMessagesFromModels(models []ChatMessageModel) []domain.ChatMessage {
	res := make([]domain.ChatMessage, 0, len(models))
	for _, m := range models {
		res = append(res, chatMessageFromModel(m))
	}
	return res
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:                  u.ID,
		Email:               u.Email,
		PasswordHash:        u.PasswordHash,
		Name:                u.Name,
		Role:                u.Role,
		Company:             u.Company,
		AlertNotifications:  u.AlertNotifications,
		ReportNotifications: u.ReportNotifications,
		AIPreference:        u.AIPreference,
		CreatedAt:           u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	pref := m.AIPreference
	if pref == "" {
		pref = domain.PreferenceSimple
	}
	return domain.User{
		ID:                  m.ID,
		Email:               m.Email,
		PasswordHash:        m.PasswordHash,
		Name:                m.Name,
		Role:                m.Role,
		Company:             m.Company,
		AlertNotifications:  m.AlertNotifications,
		ReportNotifications: m.ReportNotifications,
		AIPreference:        pref,
		CreatedAt:           m.CreatedAt,
	}
}

func machineToModel(m domain.Machine) MachineModel {
	return MachineModel{
		ID:          m.ID,
		UserEmail:   m.UserEmail,
		Name:        m.Name,
		Brand:       m.Brand,
		Model:       m.Model,
		Category:    m.Category,
		InstallDate: m.InstallDate,
	}
}

func machineFromModel(m MachineModel) domain.Machine {
	return domain.Machine{
		ID:          m.ID,
		UserEmail:   m.UserEmail,
		Name:        m.Name,
		Brand:       m.Brand,
		Model:       m.Model,
		Category:    m.Category,
		InstallDate: m.InstallDate,
	}
}

func analysisToModel(rec domain.AnalysisRecord) AnalysisModel {
	return AnalysisModel{
		ID:           rec.ID,
		UserEmail:    rec.UserEmail,
		MachineLabel: rec.MachineLabel,
		MachineID:    rec.MachineID,
		Diagnosis:    rec.Diagnosis,
		Confidence:   rec.Confidence,
		Details:      datatypes.JSON(rec.Details),
		AudioPath:    rec.AudioPath,
		CreatedAt:    rec.CreatedAt,
	}
}

func analysisFromModel(m AnalysisModel) domain.AnalysisRecord {
	return domain.AnalysisRecord{
		ID:           m.ID,
		UserEmail:    m.UserEmail,
		MachineLabel: m.MachineLabel,
		MachineID:    m.MachineID,
		Diagnosis:    m.Diagnosis,
		Confidence:   m.Confidence,
		Details:      append([]byte(nil), m.Details...),
		AudioPath:    m.AudioPath,
		CreatedAt:    m.CreatedAt,
	}
}

func sessionFromModel(m ChatSessionModel) domain.ChatSession {
	return domain.ChatSession{
		ID:        m.ID,
		UserEmail: m.UserEmail,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
	}
}

func chatMessageToModel(msg domain.ChatMessage) ChatMessageModel {
	return ChatMessageModel{
		ID:        msg.ID,
		SessionID: msg.SessionID,
		UserEmail: msg.UserEmail,
		Role:      msg.Role,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
}

func chatMessageFromModel(m ChatMessageModel) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		SessionID: m.SessionID,
		UserEmail: m.UserEmail,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
