package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"echomechanic/pkg/domain"
)

func testRecord(t *testing.T, d domain.Diagnosis) domain.AnalysisRecord {
	t.Helper()
	details, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal details: %v", err)
	}
	return domain.AnalysisRecord{
		ID:           7,
		UserEmail:    "u@example.com",
		MachineLabel: "Compressor A",
		Diagnosis:    d.Diagnosis,
		Confidence:   d.Confidence,
		Details:      details,
		CreatedAt:    time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestRenderProducesPDF(t *testing.T) {
	rec := testRecord(t, domain.Diagnosis{
		Diagnosis:     "Desgaste de rolamento",
		Confidence:    "87%",
		Description:   "Vibração de alta frequência no lado do acoplamento.",
		EstimatedCost: "120€ - 250€",
		RepairTime:    "3h - 5h",
		Steps:         []string{"Parar a máquina", "Medir folgas", "Substituir o rolamento"},
	})

	pdf, err := Render(rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output does not start with PDF magic: %q", pdf[:8])
	}
	if len(pdf) < 1000 {
		t.Fatalf("suspiciously small document: %d bytes", len(pdf))
	}
}

func TestRenderMissingDetails(t *testing.T) {
	rec := domain.AnalysisRecord{
		ID:           3,
		UserEmail:    "u@example.com",
		MachineLabel: "Prensa",
		Diagnosis:    "Erro Técnico",
		Confidence:   "0%",
		CreatedAt:    time.Now(),
	}
	pdf, err := Render(rec)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("expected a PDF document")
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("analise 中文 rapida"); got != "analise ?? rapida" {
		t.Fatalf("sanitize = %q", got)
	}
	// latin-1 text is re-encoded as single bytes for the core fonts
	if got := sanitize("é"); got != "\xe9" {
		t.Fatalf("sanitize latin-1 = %q", got)
	}
}
