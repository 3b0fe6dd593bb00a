package app

import (
	"fmt"
	"strings"
	"time"

	"echomechanic/pkg/domain"
)

const historyTimestampLayout = "2006-01-02 15:04:05"

// SessionView is one chat session as returned by the listing endpoints.
type SessionView struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

// MessageView is one chat message as returned by the history endpoint.
type MessageView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// CreateSession opens an empty session. An empty title gets the default.
func (a *App) CreateSession(email, title string) (SessionView, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultSessionTitle
	}
	now := time.Now()
	id, err := a.store.CreateSession(email, title, now)
	if err != nil {
		return SessionView{}, fmt.Errorf("create session: %w", err)
	}
	return SessionView{
		ID:        id,
		Title:     title,
		CreatedAt: now.Format(historyTimestampLayout),
	}, nil
}

// ListSessions returns the user's sessions, newest first.
func (a *App) ListSessions(email string) ([]SessionView, error) {
	sessions, err := a.store.ListSessionsByUser(email)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	views := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		views = append(views, SessionView{
			ID:        s.ID,
			Title:     s.Title,
			CreatedAt: s.CreatedAt.Format(historyTimestampLayout),
		})
	}
	return views, nil
}

// RenameSession changes a session title. Sessions owned by other users are
// reported as not found.
func (a *App) RenameSession(id uint, email, title string) error {
	owned, err := a.store.RenameSession(id, email, title)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	if !owned {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteSession removes a session and all of its messages.
func (a *App) DeleteSession(id uint, email string) error {
	owned, err := a.store.DeleteSession(id, email)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !owned {
		return ErrSessionNotFound
	}
	return nil
}

// ChatHistory returns the user's messages in chronological order, optionally
// scoped to one session.
func (a *App) ChatHistory(email string, sessionID uint) ([]MessageView, error) {
	var scope *uint
	if sessionID != 0 {
		if err := a.checkSessionOwner(sessionID, email); err != nil {
			return nil, err
		}
		scope = &sessionID
	}
	messages, err := a.store.ListChatHistory(email, scope)
	if err != nil {
		return nil, fmt.Errorf("chat history: %w", err)
	}
	return messageViews(messages), nil
}

func messageViews(messages []domain.ChatMessage) []MessageView {
	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt.Format(historyTimestampLayout),
		})
	}
	return views
}
