package app

import (
	"encoding/json"
	"fmt"
	"time"
)

// HistoryEntry is one persisted analysis as returned by the history endpoint.
// Details carries the full structured diagnosis document.
type HistoryEntry struct {
	ID          uint            `json:"id"`
	Machine     string          `json:"machine"`
	Fault       string          `json:"fault"`
	Probability string          `json:"probability"`
	Details     json.RawMessage `json:"details,omitempty"`
	AudioPath   string          `json:"audio_path,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

// History returns every analysis of the user, most recent first.
func (a *App) History(email string) ([]HistoryEntry, error) {
	records, err := a.store.ListAnalysesByUser(normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			ID:          rec.ID,
			Machine:     rec.MachineLabel,
			Fault:       rec.Diagnosis,
			Probability: rec.Confidence,
			Details:     rec.Details,
			AudioPath:   rec.AudioPath,
			CreatedAt:   rec.CreatedAt.Format(historyTimestampLayout),
		})
	}
	return entries, nil
}

// ActivityView summarises the last 24 hours of analyses.
type ActivityView struct {
	Count    int            `json:"count"`
	Analyses []HistoryEntry `json:"analyses"`
}

// Activity returns the user's analyses from the last 24 hours.
func (a *App) Activity(email string) (ActivityView, error) {
	cutoff := time.Now().Add(-24 * time.Hour)
	records, err := a.store.ListAnalysesSince(normalizeEmail(email), cutoff)
	if err != nil {
		return ActivityView{}, fmt.Errorf("list recent analyses: %w", err)
	}
	entries := make([]HistoryEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, HistoryEntry{
			ID:          rec.ID,
			Machine:     rec.MachineLabel,
			Fault:       rec.Diagnosis,
			Probability: rec.Confidence,
			CreatedAt:   rec.CreatedAt.Format(historyTimestampLayout),
		})
	}
	return ActivityView{Count: len(entries), Analyses: entries}, nil
}
