// Package report renders persisted analyses as PDF documents.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"echomechanic/pkg/domain"
)

const missingValue = "Não disponível"

// Render produces a single-page report for one analysis record.
func Render(rec domain.AnalysisRecord) ([]byte, error) {
	d := detailsOf(rec)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Relatório de Análise #%d", rec.ID), false)
	pdf.AddPage()

	// Header band in the product's cyan.
	pdf.SetFillColor(6, 182, 212)
	pdf.Rect(0, 0, 210, 30, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(10, 8)
	pdf.CellFormat(0, 8, sanitize("Relatório de Diagnóstico"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetX(10)
	pdf.CellFormat(0, 6, sanitize(fmt.Sprintf("Análise #%d  |  %s  |  %s",
		rec.ID, rec.MachineLabel, rec.CreatedAt.Format("2006-01-02 15:04"))), "", 1, "L", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetY(40)

	sectionTitle(pdf, "1. Diagnóstico")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(220, 38, 38)
	pdf.CellFormat(0, 8, sanitize(orMissing(d.Diagnosis)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, sanitize("Confiança: "+orMissing(d.Confidence)), "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.MultiCell(0, 5.5, sanitize(orMissing(d.Description)), "", "L", false)
	pdf.Ln(4)

	sectionTitle(pdf, "2. Estimativas")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, sanitize("Custo estimado: "+orMissing(d.EstimatedCost)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, sanitize("Tempo de reparação: "+orMissing(d.RepairTime)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	sectionTitle(pdf, "3. Passos recomendados")
	pdf.SetFont("Helvetica", "", 11)
	if len(d.Steps) == 0 {
		pdf.CellFormat(0, 6, sanitize(missingValue), "", 1, "L", false, 0, "")
	}
	for i, step := range d.Steps {
		pdf.MultiCell(0, 5.5, sanitize(fmt.Sprintf("%d. %s", i+1, step)), "", "L", false)
	}

	pdf.SetY(-20)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, sanitize("Gerado automaticamente pela EchoMechanic"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(235, 245, 248)
	pdf.CellFormat(0, 8, sanitize(title), "", 1, "L", true, 0, "")
	pdf.Ln(2)
}

// detailsOf recovers the structured diagnosis from the record, falling back
// to the flat columns when the stored document is absent or unreadable.
func detailsOf(rec domain.AnalysisRecord) domain.Diagnosis {
	var d domain.Diagnosis
	if len(rec.Details) > 0 {
		if err := json.Unmarshal(rec.Details, &d); err == nil {
			return d
		}
	}
	d.Diagnosis = rec.Diagnosis
	d.Confidence = rec.Confidence
	return d
}

func orMissing(s string) string {
	if strings.TrimSpace(s) == "" {
		return missingValue
	}
	return s
}

// sanitize re-encodes text as latin-1 for the core PDF fonts. Runes outside
// the repertoire become '?'.
func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r > 0xFF {
			sb.WriteByte('?')
			continue
		}
		sb.WriteByte(byte(r))
	}
	return sb.String()
}
