package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"echomechanic/pkg/domain"
)

func TestHistoryNewestFirst(t *testing.T) {
	a, st := newTestApp(t, &fakeGenerator{})

	for _, fault := range []string{"Desgaste", "Folga", "Desalinhamento"} {
		st.SaveAnalysis(domain.AnalysisRecord{
			UserEmail:    "u@example.com",
			MachineLabel: "Prensa",
			Diagnosis:    fault,
			Confidence:   "70%",
			CreatedAt:    time.Now(),
		})
	}

	entries, err := a.History("u@example.com")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Fault != "Desalinhamento" || entries[2].Fault != "Desgaste" {
		t.Fatalf("order = %q .. %q", entries[0].Fault, entries[2].Fault)
	}

	other, _ := a.History("other@example.com")
	if len(other) != 0 {
		t.Fatalf("foreign history = %d", len(other))
	}
}

func TestActivityCountsLast24Hours(t *testing.T) {
	a, st := newTestApp(t, &fakeGenerator{})

	st.SaveAnalysis(domain.AnalysisRecord{
		UserEmail: "u@example.com",
		Diagnosis: "antiga",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	})
	st.SaveAnalysis(domain.AnalysisRecord{
		UserEmail: "u@example.com",
		Diagnosis: "recente",
		CreatedAt: time.Now().Add(-time.Hour),
	})

	activity, err := a.Activity("u@example.com")
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if activity.Count != 1 || len(activity.Analyses) != 1 {
		t.Fatalf("activity = %+v", activity)
	}
	if activity.Analyses[0].Fault != "recente" {
		t.Fatalf("fault = %q", activity.Analyses[0].Fault)
	}
}

func TestReportPDFOwnership(t *testing.T) {
	gen := &fakeGenerator{reply: diagnosisJSON}
	a, st := newTestApp(t, gen)

	a.Analyze(context.Background(), AnalyzeInput{Email: "u@example.com", Audio: []byte("x")})
	records, _ := st.ListAnalysesByUser("u@example.com")
	id := records[0].ID

	pdf, filename, err := a.ReportPDF("u@example.com", id)
	if err != nil {
		t.Fatalf("ReportPDF: %v", err)
	}
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		t.Fatalf("not a pdf: %q", pdf[:min(8, len(pdf))])
	}
	if filename == "" {
		t.Fatal("expected filename")
	}

	if _, _, err := a.ReportPDF("other@example.com", id); !errors.Is(err, ErrAnalysisNotFound) {
		t.Fatalf("foreign report err = %v", err)
	}
	if _, _, err := a.ReportPDF("u@example.com", 9999); !errors.Is(err, ErrAnalysisNotFound) {
		t.Fatalf("unknown report err = %v", err)
	}
}
