// Package server exposes the HTTP surface of the diagnostics service.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"echomechanic/internal/app"
	"echomechanic/internal/ratelimit"
	"echomechanic/internal/usertoken"
	"echomechanic/internal/util"
	"echomechanic/pkg/storage"
)

const defaultMaxUploadBytes = 32 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App   *app.App
	Audio storage.AudioStore

	// Tokens, when set, lets handlers resolve the caller from a bearer
	// token instead of trusting the email field of the request.
	Tokens *usertoken.Issuer

	MaxUploadBytes int64

	// Optional per-IP limiters for the account endpoints.
	RegisterLimiter *ratelimit.FixedWindowLimiter
	LoginLimiter    *ratelimit.FixedWindowLimiter
	TrustedProxies  *util.TrustedProxies
}

// Server exposes the diagnostics, chat, and account endpoints.
type Server struct {
	app             *app.App
	audio           storage.AudioStore
	tokens          *usertoken.Issuer
	maxUploadBytes  int64
	registerLimiter *ratelimit.FixedWindowLimiter
	loginLimiter    *ratelimit.FixedWindowLimiter
	trustedProxies  *util.TrustedProxies
	mux             *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxBytes := cfg.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	s := &Server{
		app:             cfg.App,
		audio:           cfg.Audio,
		tokens:          cfg.Tokens,
		maxUploadBytes:  maxBytes,
		registerLimiter: cfg.RegisterLimiter,
		loginLimiter:    cfg.LoginLimiter,
		trustedProxies:  cfg.TrustedProxies,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("echomechanic",
		util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// accounts
	s.mux.HandleFunc("/api/register", s.handleRegister)
	s.mux.HandleFunc("/api/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/request-reset", s.handleRequestReset)
	s.mux.HandleFunc("/api/auth/reset-password", s.handleResetPassword)
	s.mux.HandleFunc("/api/user/profile", s.handleProfile)
	s.mux.HandleFunc("/api/user/update", s.handleUpdateProfile)
	s.mux.HandleFunc("/api/user/change-password", s.handleChangePassword)
	s.mux.HandleFunc("/api/user/delete", s.handleDeleteAccount)

	// machines
	s.mux.HandleFunc("/api/machines", s.handleMachines)
	s.mux.HandleFunc("/api/machines/add", s.handleAddMachine)

	// diagnostics
	s.mux.HandleFunc("/api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("/api/history", s.handleHistory)
	s.mux.HandleFunc("/api/activity", s.handleActivity)
	s.mux.HandleFunc("/api/report/pdf/", s.handleReportPDF)
	s.mux.HandleFunc(storage.PublicAudioPrefix, s.handleAudio)

	// chat
	s.mux.HandleFunc("/api/chat/send", s.handleChatSend)
	s.mux.HandleFunc("/api/chat/sessions", s.handleChatSessions)
	s.mux.HandleFunc("/api/chat/sessions/", s.handleChatSessionByID)
	s.mux.HandleFunc("/api/chat/history", s.handleChatHistory)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerEmail resolves the acting user. A valid bearer token wins over the
// email carried in the request; without a token issuer the request email is
// trusted, matching the deployment this service replaces.
func (s *Server) callerEmail(r *http.Request, requestEmail string) (string, bool) {
	if s.tokens != nil {
		if raw, ok := bearerToken(r); ok {
			email, err := s.tokens.Verify(raw)
			if err != nil {
				return "", false
			}
			return email, true
		}
	}
	email := strings.TrimSpace(requestEmail)
	return email, email != ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// account handlers

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Company  string `json:"company"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.registerLimiter, "too many registration attempts") {
		return
	}
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	err := s.app.Register(app.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Company:  req.Company,
	})
	if errors.Is(err, app.ErrEmailTaken) {
		writeError(w, http.StatusConflict, "email already registered")
		return
	}
	if err != nil {
		s.internalError(w, r, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "too many login attempts") {
		return
	}
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	profile, token, err := s.app.Login(req.Email, req.Password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if err != nil {
		s.internalError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Name: profile.Name, Token: token})
}

type resetRequest struct {
	Email    string `json:"email"`
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	token, err := s.app.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		s.internalError(w, r, "request reset", err)
		return
	}
	resp := map[string]string{"status": "ok"}
	if token != "" {
		resp["token"] = token
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req resetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	err := s.app.ResetPassword(req.Email, req.Token, req.Password)
	switch {
	case errors.Is(err, app.ErrResetTokenInvalid):
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case err != nil:
		s.internalError(w, r, "reset password", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	profile, err := s.app.Profile(email)
	if errors.Is(err, app.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

type updateProfileRequest struct {
	Email               string `json:"email"`
	Name                string `json:"name"`
	AIPreference        string `json:"ai_preference"`
	AlertNotifications  bool   `json:"alert_notifications"`
	ReportNotifications bool   `json:"report_notifications"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req updateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := s.callerEmail(r, req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	err := s.app.UpdateProfile(app.UpdateProfileInput{
		Email:               email,
		Name:                req.Name,
		AIPreference:        req.AIPreference,
		AlertNotifications:  req.AlertNotifications,
		ReportNotifications: req.ReportNotifications,
	})
	if errors.Is(err, app.ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type changePasswordRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := s.callerEmail(r, req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}
	err := s.app.ChangePassword(email, req.CurrentPassword, req.NewPassword)
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case err != nil:
		s.internalError(w, r, "change password", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
	}
}

type deleteAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	var req deleteAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := s.callerEmail(r, req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	err := s.app.DeleteAccount(email, req.Password)
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	case err != nil:
		s.internalError(w, r, "delete account", err)
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
	}
}

// machine handlers

func (s *Server) handleMachines(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	machines, err := s.app.ListMachines(email)
	if err != nil {
		s.internalError(w, r, "list machines", err)
		return
	}
	writeJSON(w, http.StatusOK, machines)
}

type addMachineRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Category    string `json:"category"`
	InstallDate string `json:"install_date"`
}

func (s *Server) handleAddMachine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req addMachineRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := s.callerEmail(r, req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "machine name is required")
		return
	}
	machine, err := s.app.AddMachine(app.MachineInput{
		Email:       email,
		Name:        req.Name,
		Brand:       req.Brand,
		Model:       req.Model,
		Category:    req.Category,
		InstallDate: req.InstallDate,
	})
	if err != nil {
		s.internalError(w, r, "add machine", err)
		return
	}
	writeJSON(w, http.StatusCreated, machine)
}

// diagnostic handlers

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form or upload too large")
		return
	}
	email, ok := s.callerEmail(r, r.FormValue("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		// older clients uploaded under "audio"
		file, header, err = r.FormFile("audio")
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read audio file")
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}
	var machineID uint
	if raw := strings.TrimSpace(r.FormValue("machine_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid machine_id")
			return
		}
		machineID = uint(id)
	}
	result := s.app.Analyze(r.Context(), app.AnalyzeInput{
		Email:     email,
		Mode:      r.FormValue("mode"),
		Filename:  header.Filename,
		Audio:     audio,
		MachineID: machineID,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := s.app.History(email)
	if err != nil {
		s.internalError(w, r, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	activity, err := s.app.Activity(email)
	if err != nil {
		s.internalError(w, r, "activity", err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *Server) handleReportPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rawID := strings.TrimPrefix(r.URL.Path, "/api/report/pdf/")
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid analysis id")
		return
	}
	pdf, filename, err := s.app.ReportPDF(email, uint(id))
	if errors.Is(err, app.ErrAnalysisNotFound) {
		writeError(w, http.StatusNotFound, "analysis not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "report pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// handleAudio serves stored recordings. Disk-backed audio streams directly;
// object-backed audio redirects to a presigned URL.
func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, storage.PublicAudioPrefix)
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if signer, ok := s.audio.(storage.URLSigner); ok {
		url, err := signer.PresignGet(r.Context(), name, time.Hour)
		if err != nil {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}
	opener, ok := s.audio.(storage.Opener)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	rc, err := opener.Open(name)
	if err != nil {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "audio/mpeg")
	_, _ = io.Copy(w, rc)
}

// chat handlers

type chatSendRequest struct {
	Email     string `json:"email"`
	Message   string `json:"message"`
	SessionID uint   `json:"session_id"`
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatSendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email, ok := s.callerEmail(r, req.Email)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply, err := s.app.SendMessage(r.Context(), app.ChatInput{
		Email:     email,
		Message:   req.Message,
		SessionID: req.SessionID,
	})
	if errors.Is(err, app.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		// The conversation surface never fails hard; unexpected errors
		// still answer with the generic assistant fallback.
		util.LoggerFromContext(r.Context()).Error("chat send failed", "err", err)
		writeJSON(w, http.StatusOK, app.ChatReply{
			Role:      "assistant",
			Content:   app.GenericFallback,
			Timestamp: time.Now().Format("2006-01-02 15:04:05"),
			SessionID: req.SessionID,
		})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type createSessionRequest struct {
	Email string `json:"email"`
	Title string `json:"title"`
}

func (s *Server) handleChatSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		sessions, err := s.app.ListSessions(email)
		if err != nil {
			s.internalError(w, r, "list sessions", err)
			return
		}
		writeJSON(w, http.StatusOK, sessions)
	case http.MethodPost:
		var req createSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		email, ok := s.callerEmail(r, req.Email)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		session, err := s.app.CreateSession(email, req.Title)
		if err != nil {
			s.internalError(w, r, "create session", err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	default:
		methodNotAllowed(w)
	}
}

type renameSessionRequest struct {
	Email string `json:"email"`
	Title string `json:"title"`
}

func (s *Server) handleChatSessionByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/api/chat/sessions/")
	id, err := strconv.ParseUint(rawID, 10, 32)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req renameSessionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		email, ok := s.callerEmail(r, req.Email)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if strings.TrimSpace(req.Title) == "" {
			writeError(w, http.StatusBadRequest, "title is required")
			return
		}
		err := s.app.RenameSession(uint(id), email, req.Title)
		if errors.Is(err, app.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			s.internalError(w, r, "rename session", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "renamed"})
	case http.MethodDelete:
		email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		err := s.app.DeleteSession(uint(id), email)
		if errors.Is(err, app.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if err != nil {
			s.internalError(w, r, "delete session", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	email, ok := s.callerEmail(r, r.URL.Query().Get("email"))
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var sessionID uint
	if raw := strings.TrimSpace(r.URL.Query().Get("session_id")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid session_id")
			return
		}
		sessionID = uint(id)
	}
	messages, err := s.app.ChatHistory(email, sessionID)
	if errors.Is(err, app.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.internalError(w, r, "chat history", err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// helpers

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	util.LoggerFromContext(r.Context()).Error(op+" failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
