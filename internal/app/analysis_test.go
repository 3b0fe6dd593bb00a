package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"echomechanic/pkg/ai"
	"echomechanic/pkg/domain"
	"echomechanic/pkg/store"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
	parts   [][]ai.Part
}

func (f *fakeGenerator) Generate(_ context.Context, parts []ai.Part, _ *ai.GenerateConfig) (string, error) {
	f.parts = append(f.parts, parts)
	for _, p := range parts {
		if p.Text != "" {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type discardAudio struct{}

func (discardAudio) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "/uploads/audio/" + name, nil
}

type failingAudio struct{}

func (failingAudio) Save(context.Context, string, io.Reader, int64, string) (string, error) {
	return "", errors.New("disk full")
}

func newTestApp(t *testing.T, gen ai.Generator) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a, err := New(Config{Store: st, Audio: discardAudio{}, Gateway: gen})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, st
}

const diagnosisJSON = `{"diagnosis":"Desgaste de rolamento","confidence":"87%","description":"Vibração de alta frequência.","estimated_cost":"120€ - 250€","repair_time":"3h - 5h","steps":["Parar a máquina","Substituir o rolamento"]}`

func TestAnalyzeReturnsStructuredResult(t *testing.T) {
	gen := &fakeGenerator{reply: diagnosisJSON}
	a, st := newTestApp(t, gen)

	res := a.Analyze(context.Background(), AnalyzeInput{
		Email:    "tech@example.com",
		Filename: "motor.mp3",
		Audio:    []byte("fake audio"),
	})

	if res.Fault != "Desgaste de rolamento" {
		t.Fatalf("fault = %q", res.Fault)
	}
	if res.Probability != "87%" {
		t.Fatalf("probability = %q", res.Probability)
	}
	if res.EstimatedCost != "120€ - 250€" || res.RepairTime != "3h - 5h" {
		t.Fatalf("estimates = %q / %q", res.EstimatedCost, res.RepairTime)
	}
	if len(res.Checklist) != 2 {
		t.Fatalf("checklist = %v", res.Checklist)
	}

	records, err := st.ListAnalysesByUser("tech@example.com")
	if err != nil {
		t.Fatalf("ListAnalysesByUser: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(records))
	}
	rec := records[0]
	if rec.Diagnosis != "Desgaste de rolamento" || rec.MachineLabel != "Nova Análise (Áudio)" {
		t.Fatalf("record = %+v", rec)
	}
	if rec.AudioPath == "" {
		t.Fatal("expected stored audio path")
	}
	var stored domain.Diagnosis
	if err := json.Unmarshal(rec.Details, &stored); err != nil {
		t.Fatalf("details: %v", err)
	}
	if stored.Description != "Vibração de alta frequência." {
		t.Fatalf("stored description = %q", stored.Description)
	}
}

func TestAnalyzeGatewayFailureDegradesAndPersists(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("503 backend overloaded")}
	a, st := newTestApp(t, gen)

	res := a.Analyze(context.Background(), AnalyzeInput{
		Email: "tech@example.com",
		Audio: []byte("fake audio"),
	})

	if res.Fault != "Erro Técnico" {
		t.Fatalf("fault = %q", res.Fault)
	}
	if res.Probability != "0%" {
		t.Fatalf("probability = %q", res.Probability)
	}
	if len(res.Checklist) != 1 || res.Checklist[0] != "Tentar novamente" {
		t.Fatalf("checklist = %v", res.Checklist)
	}

	records, _ := st.ListAnalysesByUser("tech@example.com")
	if len(records) != 1 {
		t.Fatalf("expected degraded outcome to be recorded once, got %d", len(records))
	}
	if records[0].Diagnosis != "Erro Técnico" {
		t.Fatalf("record diagnosis = %q", records[0].Diagnosis)
	}
}

func TestAnalyzeUnparsableReplyDegrades(t *testing.T) {
	gen := &fakeGenerator{reply: "sorry, I cannot help with that"}
	a, st := newTestApp(t, gen)

	res := a.Analyze(context.Background(), AnalyzeInput{Email: "u@example.com", Audio: []byte("x")})
	if res.Fault != "Erro Técnico" {
		t.Fatalf("fault = %q", res.Fault)
	}
	records, _ := st.ListAnalysesByUser("u@example.com")
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
}

func TestAnalyzeAudioSaveFailureDoesNotBlock(t *testing.T) {
	st := store.NewMemoryStore()
	a, err := New(Config{Store: st, Audio: failingAudio{}, Gateway: &fakeGenerator{reply: diagnosisJSON}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := a.Analyze(context.Background(), AnalyzeInput{Email: "u@example.com", Audio: []byte("x")})
	if res.Fault != "Desgaste de rolamento" {
		t.Fatalf("fault = %q", res.Fault)
	}
	records, _ := st.ListAnalysesByUser("u@example.com")
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].AudioPath != "" {
		t.Fatalf("expected empty audio path, got %q", records[0].AudioPath)
	}
}

func TestAnalyzeUsesMachineLabel(t *testing.T) {
	gen := &fakeGenerator{reply: diagnosisJSON}
	a, st := newTestApp(t, gen)

	id, err := st.AddMachine(domain.Machine{UserEmail: "u@example.com", Name: "Compressor A"})
	if err != nil {
		t.Fatalf("AddMachine: %v", err)
	}

	a.Analyze(context.Background(), AnalyzeInput{Email: "u@example.com", Audio: []byte("x"), MachineID: id})

	records, _ := st.ListAnalysesByUser("u@example.com")
	if len(records) != 1 || records[0].MachineLabel != "Compressor A" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].MachineID == nil || *records[0].MachineID != id {
		t.Fatal("expected machine id on record")
	}
}

func TestAnalyzeIgnoresForeignMachine(t *testing.T) {
	gen := &fakeGenerator{reply: diagnosisJSON}
	a, st := newTestApp(t, gen)

	id, _ := st.AddMachine(domain.Machine{UserEmail: "owner@example.com", Name: "Prensa"})

	a.Analyze(context.Background(), AnalyzeInput{Email: "other@example.com", Audio: []byte("x"), MachineID: id})

	records, _ := st.ListAnalysesByUser("other@example.com")
	if len(records) != 1 || records[0].MachineLabel != "Nova Análise (Áudio)" {
		t.Fatalf("records = %+v", records)
	}
}

func TestAnalyzePromptFollowsPreference(t *testing.T) {
	gen := &fakeGenerator{reply: diagnosisJSON}
	a, st := newTestApp(t, gen)

	if err := st.SaveUser(domain.User{
		Email:        "tech@example.com",
		PasswordHash: "x",
		AIPreference: domain.PreferenceTechnical,
	}); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}

	a.Analyze(context.Background(), AnalyzeInput{Email: "tech@example.com", Audio: []byte("x")})

	if len(gen.prompts) == 0 {
		t.Fatal("no prompt captured")
	}
	prompt := gen.prompts[0]
	if !containsAll(prompt, "ISO 18436", "Invalid Source") {
		t.Fatalf("prompt missing contract markers: %q", prompt)
	}
	if !containsAll(prompt, "frequency-domain") {
		t.Fatalf("expected technical style, got: %q", prompt)
	}
}

func TestParseDiagnosisDefaults(t *testing.T) {
	d, err := parseDiagnosis(`{"diagnosis":"Folga mecânica"}`)
	if err != nil {
		t.Fatalf("parseDiagnosis: %v", err)
	}
	if d.Confidence != "0%" || d.EstimatedCost != "N/A" || d.RepairTime != "N/A" {
		t.Fatalf("defaults = %+v", d)
	}
	if d.Steps == nil {
		t.Fatal("steps should default to empty slice")
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
