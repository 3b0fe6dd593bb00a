package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"echomechanic/pkg/domain"
)

func registerTestUser(t *testing.T, a *App, email, password, role string) {
	t.Helper()
	if err := a.Register(RegisterInput{Email: email, Password: password, Name: "Ana", Role: role}); err != nil {
		t.Fatalf("Register: %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "Ana@Example.com", "segredo123", "gestor")

	// emails are case-insensitive
	if err := a.Register(RegisterInput{Email: "ana@example.com", Password: "x"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate register err = %v", err)
	}

	profile, token, err := a.Login("ana@example.com", "segredo123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if profile.Name != "Ana" {
		t.Fatalf("profile = %+v", profile)
	}
	if token != "" {
		t.Fatalf("token issued without issuer: %q", token)
	}

	if _, _, err := a.Login("ana@example.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password err = %v", err)
	}
	if _, _, err := a.Login("ninguem@example.com", "segredo123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestRegisterRoleSetsPreference(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "tec@example.com", "pw", "tecnico")
	registerTestUser(t, a, "adm@example.com", "pw", "gestor")

	tec, _ := a.Profile("tec@example.com")
	if tec.AIPreference != domain.PreferenceTechnical {
		t.Fatalf("technician preference = %q", tec.AIPreference)
	}
	adm, _ := a.Profile("adm@example.com")
	if adm.AIPreference != domain.PreferenceSimple {
		t.Fatalf("manager preference = %q", adm.AIPreference)
	}
}

func TestRegisterNotificationDefaults(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "novo@example.com", "pw", "gestor")

	profile, err := a.Profile("novo@example.com")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if !profile.AlertNotifications {
		t.Fatal("alert notifications should default on")
	}
	if profile.ReportNotifications {
		t.Fatal("report notifications should default off")
	}
}

func TestUpdateProfile(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "u@example.com", "pw", "gestor")

	err := a.UpdateProfile(UpdateProfileInput{
		Email:              "u@example.com",
		Name:               "Beatriz",
		AIPreference:       "nonsense",
		AlertNotifications: true,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	profile, _ := a.Profile("u@example.com")
	if profile.Name != "Beatriz" {
		t.Fatalf("name = %q", profile.Name)
	}
	if profile.AIPreference != domain.PreferenceSimple {
		t.Fatalf("unknown preference should fall back, got %q", profile.AIPreference)
	}
	if profile.ReportNotifications {
		t.Fatal("report notifications should be off")
	}

	if err := a.UpdateProfile(UpdateProfileInput{Email: "ghost@example.com"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "u@example.com", "antiga", "gestor")

	if err := a.ChangePassword("u@example.com", "errada", "nova"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current err = %v", err)
	}
	if err := a.ChangePassword("u@example.com", "antiga", "nova"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, _, err := a.Login("u@example.com", "nova"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, _, err := a.Login("u@example.com", "antiga"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password err = %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	a, st := newTestApp(t, gen)
	registerTestUser(t, a, "u@example.com", "pw", "gestor")

	st.AddMachine(domain.Machine{UserEmail: "u@example.com", Name: "Prensa"})
	st.SaveAnalysis(domain.AnalysisRecord{UserEmail: "u@example.com", Diagnosis: "Desgaste", CreatedAt: time.Now()})
	if _, err := a.SendMessage(context.Background(), ChatInput{Email: "u@example.com", Message: "olá"}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	if err := a.DeleteAccount("u@example.com", "errada"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if err := a.DeleteAccount("u@example.com", "pw"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if _, err := a.Profile("u@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("profile after delete err = %v", err)
	}
	machines, _ := st.ListMachinesByUser("u@example.com")
	analyses, _ := st.ListAnalysesByUser("u@example.com")
	sessions, _ := st.ListSessionsByUser("u@example.com")
	history, _ := st.ListChatHistory("u@example.com", nil)
	if len(machines)+len(analyses)+len(sessions)+len(history) != 0 {
		t.Fatalf("leftover rows: %d machines, %d analyses, %d sessions, %d messages",
			len(machines), len(analyses), len(sessions), len(history))
	}
}

func TestResetPasswordWithoutTokenStore(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	registerTestUser(t, a, "u@example.com", "antiga", "gestor")

	// unknown emails report success without issuing anything
	token, err := a.RequestPasswordReset(context.Background(), "ghost@example.com")
	if err != nil || token != "" {
		t.Fatalf("unknown email: token=%q err=%v", token, err)
	}

	if err := a.ResetPassword("u@example.com", "", "nova"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if _, _, err := a.Login("u@example.com", "nova"); err != nil {
		t.Fatalf("login after reset: %v", err)
	}
}
