package app

import (
	"fmt"

	"echomechanic/internal/report"
)

// ReportPDF renders the analysis identified by id into a PDF document and
// returns the bytes plus the download filename. Records owned by other users
// are reported as not found.
func (a *App) ReportPDF(email string, id uint) ([]byte, string, error) {
	rec, ok, err := a.store.GetAnalysis(id)
	if err != nil {
		return nil, "", fmt.Errorf("load analysis: %w", err)
	}
	if !ok || rec.UserEmail != normalizeEmail(email) {
		return nil, "", ErrAnalysisNotFound
	}
	pdf, err := report.Render(rec)
	if err != nil {
		return nil, "", fmt.Errorf("render report: %w", err)
	}
	return pdf, fmt.Sprintf("relatorio_analise_%d.pdf", rec.ID), nil
}
