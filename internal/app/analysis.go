package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"echomechanic/internal/util"
	"echomechanic/pkg/ai"
	"echomechanic/pkg/domain"
	"echomechanic/pkg/storage"
)

const (
	defaultMachineLabel = "Nova Análise (Áudio)"
	degradedFault       = "Erro Técnico"
)

// AnalyzeInput is one diagnostic request.
type AnalyzeInput struct {
	Email     string
	Mode      string // style hint carried by the upload form; the stored preference wins
	Filename  string
	Audio     []byte
	MachineID uint // optional; 0 means no machine selected
}

// AnalysisResult is the six-field response contract of the analysis endpoint.
type AnalysisResult struct {
	Fault         string   `json:"fault"`
	Probability   string   `json:"probability"`
	Description   string   `json:"description"`
	EstimatedCost string   `json:"estimated_cost"`
	RepairTime    string   `json:"repair_time"`
	Checklist     []string `json:"checklist"`
}

// Analyze runs the full diagnostic pipeline: persist the recording, resolve
// the user's answer style, ask the model for a structured diagnosis, and
// record the outcome. It always produces a usable result; gateway and parse
// failures degrade to an explanatory "Erro Técnico" diagnosis and store
// failures are logged without blocking the response.
func (a *App) Analyze(ctx context.Context, in AnalyzeInput) AnalysisResult {
	logger := util.LoggerFromContext(ctx)
	now := time.Now()

	filename := storage.NewAudioFilename(in.Filename, now)
	audioPath, err := a.audio.Save(ctx, filename, bytes.NewReader(in.Audio), int64(len(in.Audio)), audioContentType(filename))
	if err != nil {
		logger.Error("audio save failed", "filename", filename, "err", err)
		audioPath = ""
	}

	preference := a.resolvePreference(ctx, in.Email)

	diagnosis, err := a.requestDiagnosis(ctx, preference, in.Audio)
	if err != nil {
		logger.Error("diagnosis failed", "email", in.Email, "err", err)
		diagnosis = degradedDiagnosis(err)
	}

	a.persistAnalysis(ctx, in, diagnosis, audioPath, now)
	return resultFromDiagnosis(diagnosis)
}

func (a *App) resolvePreference(ctx context.Context, email string) string {
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		util.LoggerFromContext(ctx).Warn("preference lookup failed", "email", email, "err", err)
		return domain.PreferenceSimple
	}
	if !ok || user.AIPreference == "" {
		return domain.PreferenceSimple
	}
	return user.AIPreference
}

func (a *App) requestDiagnosis(ctx context.Context, preference string, audio []byte) (domain.Diagnosis, error) {
	parts := []ai.Part{
		ai.TextPart(buildDiagnosisPrompt(preference)),
		ai.DataPart("audio/mp3", audio),
	}
	raw, err := a.gateway.Generate(ctx, parts, &ai.GenerateConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return domain.Diagnosis{}, fmt.Errorf("generate diagnosis: %w", err)
	}
	diagnosis, err := parseDiagnosis(raw)
	if err != nil {
		return domain.Diagnosis{}, fmt.Errorf("parse diagnosis: %w", err)
	}
	return diagnosis, nil
}

func buildDiagnosisPrompt(preference string) string {
	style := "Explain in executive terms focused on cost, downtime, and severity. Avoid heavy jargon; be clear for a manager."
	if preference == domain.PreferenceTechnical {
		style = "Be extremely technical. Use engineering terminology, reference ISO 18436, and speak in frequency-domain terms about specific components."
	}
	var sb strings.Builder
	sb.WriteString("Act as an ISO 18436 vibration analysis engineer. Analyse the attached audio with skepticism.\n\n")
	sb.WriteString("RESPONSE STYLE: ")
	sb.WriteString(style)
	sb.WriteString("\n\nSTEP 1 - VALIDATE\n")
	sb.WriteString("- If the audio is human speech, silence, or non-mechanical impacts (such as knocking on a table), set diagnosis to \"Invalid Source\" with estimated_cost \"0€\" and repair_time \"0h\".\n\n")
	sb.WriteString("STEP 2 - DIAGNOSE\n")
	sb.WriteString("- If it is genuine mechanical noise, identify the fault (bearing wear, misalignment, imbalance, etc).\n\n")
	sb.WriteString("Answer in European Portuguese, strictly as JSON in this shape:\n")
	sb.WriteString(`{"diagnosis": "...", "confidence": "...", "description": "...", "estimated_cost": "estimate in euros (e.g. '50€ - 150€'), '0€' when normal", "repair_time": "downtime (e.g. '2h - 4h'), '0h' when normal", "steps": ["..."]}`)
	return sb.String()
}

// parseDiagnosis decodes the model's structured output into the typed result.
func parseDiagnosis(raw string) (domain.Diagnosis, error) {
	var diagnosis domain.Diagnosis
	if err := json.Unmarshal([]byte(raw), &diagnosis); err != nil {
		return domain.Diagnosis{}, err
	}
	applyDiagnosisDefaults(&diagnosis)
	return diagnosis, nil
}

// applyDiagnosisDefaults fills missing fields explicitly instead of letting
// absent keys surface as empty strings downstream.
func applyDiagnosisDefaults(d *domain.Diagnosis) {
	if d.Diagnosis == "" {
		d.Diagnosis = "Falha Desconhecida"
	}
	if d.Confidence == "" {
		d.Confidence = "0%"
	}
	if d.Description == "" {
		d.Description = "Sem descrição."
	}
	if d.EstimatedCost == "" {
		d.EstimatedCost = "N/A"
	}
	if d.RepairTime == "" {
		d.RepairTime = "N/A"
	}
	if d.Steps == nil {
		d.Steps = []string{}
	}
}

// degradedDiagnosis is the fallback constructed when the gateway call or the
// structured parse fails. The request still succeeds from the client's view.
func degradedDiagnosis(err error) domain.Diagnosis {
	return domain.Diagnosis{
		Diagnosis:     degradedFault,
		Confidence:    "0%",
		Description:   fmt.Sprintf("Ocorreu um erro ao processar a análise: %v", err),
		EstimatedCost: "N/A",
		RepairTime:    "N/A",
		Steps:         []string{"Tentar novamente"},
	}
}

func (a *App) persistAnalysis(ctx context.Context, in AnalyzeInput, diagnosis domain.Diagnosis, audioPath string, now time.Time) {
	label := defaultMachineLabel
	var machineID *uint
	if in.MachineID != 0 {
		machine, ok, err := a.store.GetMachine(in.MachineID)
		if err == nil && ok && machine.UserEmail == in.Email {
			label = machine.Name
			id := machine.ID
			machineID = &id
		}
	}
	details, err := json.Marshal(diagnosis)
	if err != nil {
		details = nil
	}
	if _, err := a.store.SaveAnalysis(domain.AnalysisRecord{
		UserEmail:    in.Email,
		MachineLabel: label,
		MachineID:    machineID,
		Diagnosis:    diagnosis.Diagnosis,
		Confidence:   diagnosis.Confidence,
		Details:      details,
		AudioPath:    audioPath,
		CreatedAt:    now,
	}); err != nil {
		// Best effort: the diagnosis is already computed and must reach
		// the client even when the record cannot be written.
		util.LoggerFromContext(ctx).Error("analysis persist failed", "email", in.Email, "err", err)
	}
}

func resultFromDiagnosis(d domain.Diagnosis) AnalysisResult {
	checklist := d.Steps
	if checklist == nil {
		checklist = []string{}
	}
	return AnalysisResult{
		Fault:         d.Diagnosis,
		Probability:   d.Confidence,
		Description:   d.Description,
		EstimatedCost: d.EstimatedCost,
		RepairTime:    d.RepairTime,
		Checklist:     checklist,
	}
}

func audioContentType(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(filename, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(filename, ".m4a"):
		return "audio/mp4"
	default:
		return "audio/mp3"
	}
}
