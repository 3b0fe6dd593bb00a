package app

import (
	"fmt"

	"echomechanic/internal/usertoken"
	"echomechanic/pkg/ai"
	"echomechanic/pkg/storage"
	"echomechanic/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	Store   store.Store
	Audio   storage.AudioStore
	Gateway ai.Generator

	// Optional collaborators. ResetTokens enables validated password
	// resets, Tokens enables login tokens; both may be nil.
	ResetTokens *store.ResetTokenStore
	Tokens      *usertoken.Issuer

	// ChatTitleGeneration turns on first-message session titling. Off by
	// default to conserve model quota.
	ChatTitleGeneration bool
}

// App is the core application service wiring storage, audio persistence, and
// the inference gateway together.
type App struct {
	store           store.Store
	audio           storage.AudioStore
	gateway         ai.Generator
	resetTokens     *store.ResetTokenStore
	tokens          *usertoken.Issuer
	titleGeneration bool
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Audio == nil {
		return nil, fmt.Errorf("audio store required")
	}
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("inference gateway required")
	}
	return &App{
		store:           cfg.Store,
		audio:           cfg.Audio,
		gateway:         cfg.Gateway,
		resetTokens:     cfg.ResetTokens,
		tokens:          cfg.Tokens,
		titleGeneration: cfg.ChatTitleGeneration,
	}, nil
}
