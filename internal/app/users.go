package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"echomechanic/internal/util"
	"echomechanic/pkg/auth"
	"echomechanic/pkg/domain"
)

// RegisterInput carries a new account request.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
	Company  string
}

// ProfileView is the account data exposed to the client.
type ProfileView struct {
	Email               string `json:"email"`
	Name                string `json:"name"`
	Role                string `json:"role"`
	Company             string `json:"company"`
	AlertNotifications  bool   `json:"alert_notifications"`
	ReportNotifications bool   `json:"report_notifications"`
	AIPreference        string `json:"ai_preference"`
}

// Register creates an account. Technicians default to technical answers,
// everyone else to the simple style.
func (a *App) Register(in RegisterInput) error {
	email := normalizeEmail(in.Email)
	taken, err := a.store.HasUserEmail(email)
	if err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	preference := domain.PreferenceSimple
	if strings.EqualFold(in.Role, "tecnico") || strings.EqualFold(in.Role, "técnico") {
		preference = domain.PreferenceTechnical
	}
	if err := a.store.SaveUser(domain.User{
		Email:               email,
		PasswordHash:        hash,
		Name:                in.Name,
		Role:                in.Role,
		Company:             in.Company,
		AlertNotifications:  true,
		ReportNotifications: false,
		AIPreference:        preference,
		CreatedAt:           time.Now(),
	}); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Login checks credentials and, when a token issuer is configured, returns a
// signed login token. The token is empty when running without one.
func (a *App) Login(email, password string) (ProfileView, string, error) {
	user, ok, err := a.store.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return ProfileView{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return ProfileView{}, "", ErrInvalidCredentials
	}
	token := ""
	if a.tokens != nil {
		token, err = a.tokens.Issue(user.Email)
		if err != nil {
			return ProfileView{}, "", fmt.Errorf("issue token: %w", err)
		}
	}
	return profileView(user), token, nil
}

// Profile returns the account data for a known email.
func (a *App) Profile(email string) (ProfileView, error) {
	user, ok, err := a.store.GetUserByEmail(normalizeEmail(email))
	if err != nil {
		return ProfileView{}, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ProfileView{}, ErrUserNotFound
	}
	return profileView(user), nil
}

// UpdateProfileInput carries the mutable profile fields.
type UpdateProfileInput struct {
	Email               string
	Name                string
	AIPreference        string
	AlertNotifications  bool
	ReportNotifications bool
}

// UpdateProfile rewrites the mutable profile fields. Unknown preference
// values fall back to the simple style.
func (a *App) UpdateProfile(in UpdateProfileInput) error {
	preference := in.AIPreference
	if preference != domain.PreferenceTechnical {
		preference = domain.PreferenceSimple
	}
	ok, err := a.store.UpdateUserProfile(normalizeEmail(in.Email), in.Name, preference, in.AlertNotifications, in.ReportNotifications)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// ChangePassword verifies the current password before storing a new hash.
func (a *App) ChangePassword(email, current, next string) error {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if !auth.CheckPassword(current, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := a.store.UpdateUserPassword(email, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// DeleteAccount removes the user and every row keyed to the email, chat data
// included.
func (a *App) DeleteAccount(email, password string) error {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := a.store.DeleteUser(email); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// RequestPasswordReset issues a reset token for a known account. The token
// would normally leave over email; here it is returned to the caller. An
// unknown email still reports success so the endpoint cannot be used to
// probe for accounts.
func (a *App) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	_, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return "", nil
	}
	if a.resetTokens == nil {
		util.LoggerFromContext(ctx).Warn("reset requested without token store", "email", email)
		return "", nil
	}
	token, err := a.resetTokens.Create(email)
	if err != nil {
		return "", fmt.Errorf("create reset token: %w", err)
	}
	return token, nil
}

// ResetPassword stores a new hash for the account bound to the token. When no
// token store is configured the email from the request is trusted directly.
func (a *App) ResetPassword(email, token, next string) error {
	email = normalizeEmail(email)
	if a.resetTokens != nil {
		bound, ok, err := a.resetTokens.Consume(token)
		if err != nil {
			return fmt.Errorf("consume reset token: %w", err)
		}
		if !ok || bound != email {
			return ErrResetTokenInvalid
		}
	}
	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := a.store.UpdateUserPassword(email, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

func profileView(u domain.User) ProfileView {
	return ProfileView{
		Email:               u.Email,
		Name:                u.Name,
		Role:                u.Role,
		Company:             u.Company,
		AlertNotifications:  u.AlertNotifications,
		ReportNotifications: u.ReportNotifications,
		AIPreference:        u.AIPreference,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
