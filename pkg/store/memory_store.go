package store

import (
	"sync"
	"time"

	"echomechanic/pkg/domain"
)

// MemoryStore keeps everything in-process. It backs tests and mirrors the
// GormStore contract, including id monotonicity and cascade semantics.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User // key: email
	machines []domain.Machine
	analyses []domain.AnalysisRecord
	sessions []domain.ChatSession
	messages []domain.ChatMessage

	nextMachineID  uint
	nextAnalysisID uint
	nextSessionID  uint
	nextMessageID  uint
	nextUserID     uint
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:          make(map[string]domain.User),
		nextMachineID:  1,
		nextAnalysisID: 1,
		nextSessionID:  1,
		nextMessageID:  1,
		nextUserID:     1,
	}
}

// SaveUser registers a user.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextUserID
		m.nextUserID++
	}
	m.users[u.Email] = u
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[email]
	return ok, nil
}

// GetUserByEmail looks up a user.
func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[email]
	return u, ok, nil
}

// UpdateUserProfile updates profile fields.
func (m *MemoryStore) UpdateUserProfile(email, name, preference string, alerts, reports bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return false, nil
	}
	u.Name = name
	u.AIPreference = preference
	u.AlertNotifications = alerts
	u.ReportNotifications = reports
	m.users[email] = u
	return true, nil
}

// UpdateUserPassword replaces the credential hash.
func (m *MemoryStore) UpdateUserPassword(email, passwordHash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return false, nil
	}
	u.PasswordHash = passwordHash
	m.users[email] = u
	return true, nil
}

// DeleteUser removes the account and everything attributed to it.
func (m *MemoryStore) DeleteUser(email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, email)
	m.machines = filterMachines(m.machines, email)
	m.analyses = filterAnalyses(m.analyses, email)
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.UserEmail != email {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	keptMsgs := m.messages[:0]
	for _, msg := range m.messages {
		if msg.UserEmail != email {
			keptMsgs = append(keptMsgs, msg)
		}
	}
	m.messages = keptMsgs
	return nil
}

// AddMachine registers a machine.
func (m *MemoryStore) AddMachine(machine domain.Machine) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	machine.ID = m.nextMachineID
	m.nextMachineID++
	m.machines = append(m.machines, machine)
	return machine.ID, nil
}

// ListMachinesByUser returns machines in insertion order.
func (m *MemoryStore) ListMachinesByUser(email string) ([]domain.Machine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Machine, 0)
	for _, machine := range m.machines {
		if machine.UserEmail == email {
			res = append(res, machine)
		}
	}
	return res, nil
}

// GetMachine returns one machine by id.
func (m *MemoryStore) GetMachine(id uint) (domain.Machine, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, machine := range m.machines {
		if machine.ID == id {
			return machine, true, nil
		}
	}
	return domain.Machine{}, false, nil
}

// SaveAnalysis persists a record and returns its id.
func (m *MemoryStore) SaveAnalysis(rec domain.AnalysisRecord) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextAnalysisID
	m.nextAnalysisID++
	m.analyses = append(m.analyses, rec)
	return rec.ID, nil
}

// GetAnalysis returns one record by id.
func (m *MemoryStore) GetAnalysis(id uint) (domain.AnalysisRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.analyses {
		if rec.ID == id {
			return rec, true, nil
		}
	}
	return domain.AnalysisRecord{}, false, nil
}

// ListAnalysesByUser returns all records, most recent first.
func (m *MemoryStore) ListAnalysesByUser(email string) ([]domain.AnalysisRecord, error) {
	return m.filterAnalysesDesc(email, 0, time.Time{})
}

// RecentAnalyses returns up to limit records, most recent first.
func (m *MemoryStore) RecentAnalyses(email string, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		return []domain.AnalysisRecord{}, nil
	}
	return m.filterAnalysesDesc(email, limit, time.Time{})
}

// ListAnalysesSince returns records at or after cutoff, most recent first.
func (m *MemoryStore) ListAnalysesSince(email string, cutoff time.Time) ([]domain.AnalysisRecord, error) {
	return m.filterAnalysesDesc(email, 0, cutoff)
}

func (m *MemoryStore) filterAnalysesDesc(email string, limit int, cutoff time.Time) ([]domain.AnalysisRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.AnalysisRecord, 0)
	for i := len(m.analyses) - 1; i >= 0; i-- {
		rec := m.analyses[i]
		if rec.UserEmail != email {
			continue
		}
		if !cutoff.IsZero() && rec.CreatedAt.Before(cutoff) {
			continue
		}
		res = append(res, rec)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

// CreateSession creates a session and returns its id.
func (m *MemoryStore) CreateSession(email, title string, createdAt time.Time) (uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSessionID
	m.nextSessionID++
	m.sessions = append(m.sessions, domain.ChatSession{
		ID:        id,
		UserEmail: email,
		Title:     title,
		CreatedAt: createdAt,
	})
	return id, nil
}

// ListSessionsByUser returns sessions, most recent first.
func (m *MemoryStore) ListSessionsByUser(email string) ([]domain.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatSession, 0)
	for i := len(m.sessions) - 1; i >= 0; i-- {
		if m.sessions[i].UserEmail == email {
			res = append(res, m.sessions[i])
		}
	}
	return res, nil
}

// RenameSession updates the title when owned by email.
func (m *MemoryStore) RenameSession(id uint, email, title string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions {
		if s.ID == id && s.UserEmail == email {
			m.sessions[i].Title = title
			return true, nil
		}
	}
	return false, nil
}

// DeleteSession removes a session and its messages when owned by email.
func (m *MemoryStore) DeleteSession(id uint, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := -1
	for i, s := range m.sessions {
		if s.ID == id && s.UserEmail == email {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.SessionID == nil || *msg.SessionID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	m.sessions = append(m.sessions[:idx], m.sessions[idx+1:]...)
	return true, nil
}

// SetSessionTitle updates a session title without an ownership check.
func (m *MemoryStore) SetSessionTitle(id uint, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sessions {
		if s.ID == id {
			m.sessions[i].Title = title
			return nil
		}
	}
	return nil
}

// SessionMessageCount counts messages in a session.
func (m *MemoryStore) SessionMessageCount(id uint) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var count int64
	for _, msg := range m.messages {
		if msg.SessionID != nil && *msg.SessionID == id {
			count++
		}
	}
	return count, nil
}

// AppendChatMessage records a message.
func (m *MemoryStore) AppendChatMessage(msg domain.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextMessageID
	m.nextMessageID++
	m.messages = append(m.messages, msg)
	return nil
}

// ListSessionMessages returns a session's messages in chronological order.
func (m *MemoryStore) ListSessionMessages(sessionID uint) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.SessionID != nil && *msg.SessionID == sessionID {
			res = append(res, msg)
		}
	}
	return res, nil
}

// ListChatHistory returns a user's messages in chronological order.
func (m *MemoryStore) ListChatHistory(email string, sessionID *uint) ([]domain.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.ChatMessage, 0)
	for _, msg := range m.messages {
		if msg.UserEmail != email {
			continue
		}
		if sessionID != nil && (msg.SessionID == nil || *msg.SessionID != *sessionID) {
			continue
		}
		res = append(res, msg)
	}
	return res, nil
}

func filterMachines(machines []domain.Machine, email string) []domain.Machine {
	kept := machines[:0]
	for _, m := range machines {
		if m.UserEmail != email {
			kept = append(kept, m)
		}
	}
	return kept
}

func filterAnalyses(analyses []domain.AnalysisRecord, email string) []domain.AnalysisRecord {
	kept := analyses[:0]
	for _, rec := range analyses {
		if rec.UserEmail != email {
			kept = append(kept, rec)
		}
	}
	return kept
}
