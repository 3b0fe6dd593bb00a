package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"echomechanic/internal/util"
	"echomechanic/pkg/ai"
	"echomechanic/pkg/domain"
)

const (
	defaultSessionTitle = "Nova Conversa"

	chatContextAnalyses = 3
	chatContextMessages = 10

	safetyFallback  = "Desculpa, não consigo processar esse pedido. Podes reformular a pergunta sobre a tua máquina?"
	gatewayFallback = "Estou com dificuldades técnicas temporárias em aceder ao meu cérebro digital. Tenta novamente dentro de momentos."
)

// GenericFallback is the assistant's answer of last resort, used by the HTTP
// layer when a chat turn fails in a way the orchestrator could not absorb.
const GenericFallback = "Estou com dificuldades técnicas. Tenta novamente mais tarde."

// ChatInput is one user turn addressed to the assistant.
type ChatInput struct {
	Email     string
	Message   string
	SessionID uint // 0 starts a new session
}

// ChatReply is the assistant's turn plus the session it landed in.
type ChatReply struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	SessionID uint   `json:"session_id"`
}

// SendMessage runs one assistant turn. The user message is persisted before
// inference so a gateway failure never loses the question; the reply is
// persisted afterwards with its own timestamp. Safety blocks and gateway
// errors both degrade to fixed fallback replies rather than failing the turn.
func (a *App) SendMessage(ctx context.Context, in ChatInput) (ChatReply, error) {
	logger := util.LoggerFromContext(ctx)
	now := time.Now()

	sessionID := in.SessionID
	if sessionID == 0 {
		id, err := a.store.CreateSession(in.Email, defaultSessionTitle, now)
		if err != nil {
			return ChatReply{}, fmt.Errorf("create session: %w", err)
		}
		sessionID = id
	} else if err := a.checkSessionOwner(sessionID, in.Email); err != nil {
		return ChatReply{}, err
	}

	prompt, err := a.buildChatPrompt(in.Email, sessionID, in.Message)
	if err != nil {
		return ChatReply{}, err
	}

	if err := a.store.AppendChatMessage(domain.ChatMessage{
		SessionID: &sessionID,
		UserEmail: in.Email,
		Role:      "user",
		Content:   in.Message,
		CreatedAt: now,
	}); err != nil {
		return ChatReply{}, fmt.Errorf("persist user message: %w", err)
	}

	reply, err := a.gateway.Generate(ctx, []ai.Part{ai.TextPart(prompt)}, nil)
	switch {
	case errors.Is(err, ai.ErrNoContent):
		logger.Warn("chat reply blocked", "session", sessionID, "err", err)
		reply = safetyFallback
	case err != nil:
		logger.Error("chat generation failed", "session", sessionID, "err", err)
		reply = gatewayFallback
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		reply = safetyFallback
	}

	replyAt := time.Now()
	if err := a.store.AppendChatMessage(domain.ChatMessage{
		SessionID: &sessionID,
		UserEmail: in.Email,
		Role:      "assistant",
		Content:   reply,
		CreatedAt: replyAt,
	}); err != nil {
		logger.Error("persist assistant message failed", "session", sessionID, "err", err)
	}

	a.maybeTitleSession(ctx, sessionID, in.Message)

	return ChatReply{
		Role:      "assistant",
		Content:   reply,
		Timestamp: replyAt.Format(historyTimestampLayout),
		SessionID: sessionID,
	}, nil
}

func (a *App) checkSessionOwner(sessionID uint, email string) error {
	sessions, err := a.store.ListSessionsByUser(email)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			return nil
		}
	}
	return ErrSessionNotFound
}

// buildChatPrompt assembles the persona, the user's recent diagnostic
// context, and the tail of the session transcript into one generation prompt.
func (a *App) buildChatPrompt(email string, sessionID uint, message string) (string, error) {
	var sb strings.Builder
	sb.WriteString("You are 'Samantha', the industrial maintenance assistant of the EchoMechanic app. ")
	sb.WriteString("You are friendly, concise, and answer in European Portuguese. ")
	sb.WriteString("You help technicians interpret machine diagnostics and plan repairs.\n")

	recent, err := a.store.RecentAnalyses(email, chatContextAnalyses)
	if err != nil {
		return "", fmt.Errorf("recent analyses: %w", err)
	}
	sb.WriteString("\nHistórico recente de análises do utilizador:\n")
	if len(recent) == 0 {
		sb.WriteString("Nenhuma análise recente encontrada.\n")
	}
	for _, rec := range recent {
		fmt.Fprintf(&sb, "- %s: %s (%s) em %s\n",
			rec.MachineLabel, rec.Diagnosis, rec.Confidence,
			rec.CreatedAt.Format("2006-01-02 15:04"))
	}

	history, err := a.store.ListSessionMessages(sessionID)
	if err != nil {
		return "", fmt.Errorf("session messages: %w", err)
	}
	if len(history) > chatContextMessages {
		history = history[len(history)-chatContextMessages:]
	}
	if len(history) > 0 {
		sb.WriteString("\nConversa até agora:\n")
		for _, msg := range history {
			speaker := "Utilizador"
			if msg.Role == "assistant" {
				speaker = "Samantha"
			}
			fmt.Fprintf(&sb, "%s: %s\n", speaker, msg.Content)
		}
	}

	sb.WriteString("\nUtilizador: ")
	sb.WriteString(message)
	sb.WriteString("\nSamantha:")
	return sb.String(), nil
}

// maybeTitleSession titles a fresh session from its first user message.
// Failures are ignored; the session keeps its default title.
func (a *App) maybeTitleSession(ctx context.Context, sessionID uint, firstMessage string) {
	if !a.titleGeneration {
		return
	}
	count, err := a.store.SessionMessageCount(sessionID)
	if err != nil || count > 2 {
		return
	}
	prompt := "Summarise the following support question as a chat title of at most five words, in European Portuguese, with no quotes:\n" + firstMessage
	title, err := a.gateway.Generate(ctx, []ai.Part{ai.TextPart(prompt)}, nil)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("session title generation failed", "session", sessionID, "err", err)
		return
	}
	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return
	}
	if err := a.store.SetSessionTitle(sessionID, title); err != nil {
		util.LoggerFromContext(ctx).Warn("session title update failed", "session", sessionID, "err", err)
	}
}
