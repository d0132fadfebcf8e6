// Package reminder envia o lembrete de véspera por WhatsApp para as sessões
// agendadas do dia seguinte. Roda como job (cmd/reminder), fora do servidor.
package reminder

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
	"github.com/riqueLenis/cognifyPsi/internal/whatsapp"
)

// Sender envia um lembrete a um telefone E.164. Em produção é o Sender do
// pacote whatsapp; nos testes, um mock.
type Sender interface {
	Send(ctx context.Context, toE164, message string, params whatsapp.TemplateParams) (*whatsapp.Result, error)
}

// Lister carrega as sessões candidatas. Nos testes substitui o repo.
type Lister func(ctx context.Context, db *gorm.DB, date string) ([]repo.SessionReminderRow, error)

// ComposeReminder monta a mensagem de lembrete de véspera.
func ComposeReminder(patientName, psychologistName, dateBR, timeStr string) string {
	pName := patientName
	if pName == "" {
		pName = "Olá"
	}
	psy := psychologistName
	if psy == "" {
		psy = "a psicóloga"
	}
	when := dateBR
	if timeStr != "" {
		when += " às " + timeStr
	}
	return "Olá, " + pName + "!\n\n" +
		"Lembrete: sua sessão com " + psy + " é amanhã, " + when + ".\n\n" +
		"Se precisar reagendar, avise com antecedência. Até lá!"
}

// SendSessionReminders envia um lembrete por sessão agendada na data. Falha
// individual é registrada e não interrompe as demais. lister nil usa o repo.
func SendSessionReminders(ctx context.Context, db *gorm.DB, date string, sender Sender, lister Lister) (sent, skipped int) {
	if lister == nil {
		lister = repo.SessionsForReminder
	}
	rows, err := lister(ctx, db, date)
	if err != nil {
		log.Printf("[reminder] busca de sessões: %v", err)
		return 0, 0
	}
	if sender == nil {
		log.Printf("[reminder] WhatsApp não configurado, %d lembrete(s) não enviados", len(rows))
		return 0, len(rows)
	}

	for _, r := range rows {
		phone := ""
		if r.PatientPhone != nil {
			phone = *r.PatientPhone
		}
		toE164 := whatsapp.NormalizePhoneE164BR(phone)
		if toE164 == "" {
			log.Printf("[reminder] sessão %s pulada: telefone inválido ou ausente", r.SessionID)
			skipped++
			continue
		}

		psy := ""
		if r.PsychologistName != nil {
			psy = *r.PsychologistName
		}
		timeStr := ""
		if r.StartTime != nil {
			timeStr = *r.StartTime
		}
		message := ComposeReminder(r.PatientName, psy, whatsapp.FormatDateBR(r.Date), timeStr)

		result, err := sender.Send(ctx, toE164, message, whatsapp.TemplateParams{
			PatientName:      r.PatientName,
			PsychologistName: psy,
			DateBR:           whatsapp.FormatDateBR(r.Date),
			Time:             timeStr,
		})
		if err != nil {
			log.Printf("[reminder] envio da sessão %s falhou: %v", r.SessionID, err)
			skipped++
			continue
		}
		if result.Skipped {
			log.Printf("[reminder] sessão %s pulada pelo provedor: %s", r.SessionID, result.Reason)
			skipped++
			continue
		}
		sent++

		if db != nil {
			sessionID := r.SessionID
			detail := "lembrete de véspera enviado via " + result.Provider
			_ = repo.RecordAudit(ctx, db, &repo.AuditEvent{
				OwnerID:  r.OwnerID,
				Action:   "reminder.sent",
				Entity:   "session",
				EntityID: &sessionID,
				Detail:   &detail,
			})
		}
	}
	return sent, skipped
}

// Tomorrow devolve a data de amanhã (YYYY-MM-DD) no fuso dado.
func Tomorrow(loc *time.Location) string {
	now := time.Now().In(loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1).Format("2006-01-02")
}
