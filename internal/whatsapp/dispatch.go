package whatsapp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/config"
	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

// Dispatcher decide se a confirmação deve sair e registra o resultado na
// sessão. Falhas aqui nunca devem derrubar a gravação da sessão: o chamador
// loga e segue.
type Dispatcher struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Sender *Sender
}

func NewDispatcher(db *gorm.DB, cfg *config.Config) *Dispatcher {
	return &Dispatcher{DB: db, Cfg: cfg, Sender: NewSender(cfg)}
}

// ConfirmSession envia (ou prepara) a confirmação da sessão, se couber.
// Regras de pulo: recurso desabilitado, sessão não agendada, paciente sem
// telefone válido, ou mesmo agendamento já confirmado antes (fingerprint).
func (d *Dispatcher) ConfirmSession(ctx context.Context, ownerID, sessionID uuid.UUID) (*Result, error) {
	if !d.Cfg.WhatsAppEnabled {
		return &Result{Skipped: true, Reason: "disabled"}, nil
	}
	if d.Cfg.WhatsAppProvider == "disabled" || d.Cfg.WhatsAppProvider == "" {
		return &Result{Skipped: true, Reason: "provider_disabled"}, nil
	}

	s, err := repo.SessionByIDAndOwner(ctx, d.DB, sessionID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Skipped: true, Reason: "session_not_found"}, nil
		}
		return nil, err
	}
	if s.Status != "agendada" {
		return &Result{Skipped: true, Reason: "status_not_agendada"}, nil
	}

	p, err := repo.PatientByIDAndOwner(ctx, d.DB, s.PatientID, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &Result{Skipped: true, Reason: "patient_not_found"}, nil
		}
		return nil, err
	}

	phone := ""
	if p.Phone != nil {
		phone = *p.Phone
	}
	toE164 := NormalizePhoneE164BR(phone)
	if toE164 == "" {
		return &Result{Skipped: true, Reason: "invalid_or_missing_phone"}, nil
	}

	psychologistName := ""
	if settings, err := repo.SettingsByOwner(ctx, d.DB, ownerID); err == nil && settings.PsychologistName != nil {
		psychologistName = *settings.PsychologistName
	}

	timeStr := ""
	if s.StartTime != nil {
		timeStr = *s.StartTime
	}
	dateBR := FormatDateBR(s.Date)

	fp := Fingerprint(s.Date, timeStr, psychologistName)
	if s.WhatsAppFingerprint != nil && *s.WhatsAppFingerprint == fp && s.WhatsAppSentAt != nil {
		return &Result{Skipped: true, Reason: "already_sent_for_same_schedule"}, nil
	}

	message := ComposeConfirmation(p.FullName, psychologistName, dateBR, timeStr)
	result, err := d.Sender.Send(ctx, toE164, message, TemplateParams{
		PatientName:      p.FullName,
		PsychologistName: psychologistName,
		DateBR:           dateBR,
		Time:             timeStr,
	})
	if err != nil {
		return nil, err
	}
	if result.Skipped {
		return result, nil
	}

	now := time.Now().UTC()
	var sentAt, preparedAt *time.Time
	if result.Provider == "link" {
		preparedAt = &now
	} else {
		sentAt = &now
	}
	var messageID *string
	if result.MessageID != "" {
		messageID = &result.MessageID
	}
	if err := repo.MarkSessionWhatsApp(ctx, d.DB, s.ID, ownerID, fp, result.Provider, toE164, sentAt, preparedAt, messageID); err != nil {
		return nil, err
	}
	return result, nil
}
