package reminder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
	"github.com/riqueLenis/cognifyPsi/internal/whatsapp"
)

type mockSender struct {
	sent    []string
	failFor string // telefone que deve falhar
}

func (m *mockSender) Send(_ context.Context, toE164, message string, _ whatsapp.TemplateParams) (*whatsapp.Result, error) {
	if toE164 == m.failFor {
		return nil, errors.New("provider down")
	}
	m.sent = append(m.sent, message)
	return &whatsapp.Result{Provider: "meta", MessageID: "wamid." + toE164}, nil
}

func listerOf(rows []repo.SessionReminderRow, err error) Lister {
	return func(_ context.Context, _ *gorm.DB, _ string) ([]repo.SessionReminderRow, error) {
		return rows, err
	}
}

func strPtr(s string) *string { return &s }

func reminderRow(name, phone string) repo.SessionReminderRow {
	return repo.SessionReminderRow{
		SessionID:        uuid.New(),
		OwnerID:          uuid.New(),
		PatientID:        uuid.New(),
		PatientName:      name,
		PatientPhone:     strPtr(phone),
		Date:             "2024-06-11",
		StartTime:        strPtr("14:00"),
		PsychologistName: strPtr("Dra. Ana"),
	}
}

func TestSendSessionRemindersListerError(t *testing.T) {
	sent, skipped := SendSessionReminders(context.Background(), nil, "2024-06-11",
		&mockSender{}, listerOf(nil, errors.New("db error")))
	if sent != 0 || skipped != 0 {
		t.Errorf("erro do lister: sent=%d skipped=%d, quer 0,0", sent, skipped)
	}
}

func TestSendSessionRemindersSenderNil(t *testing.T) {
	rows := []repo.SessionReminderRow{reminderRow("Maria", "11987654321"), reminderRow("João", "11912340000")}
	sent, skipped := SendSessionReminders(context.Background(), nil, "2024-06-11", nil, listerOf(rows, nil))
	if sent != 0 || skipped != 2 {
		t.Errorf("sender nil: sent=%d skipped=%d, quer 0,2", sent, skipped)
	}
}

func TestSendSessionRemindersAllSent(t *testing.T) {
	rows := []repo.SessionReminderRow{reminderRow("Maria", "11987654321"), reminderRow("João", "11912340000")}
	sender := &mockSender{}
	sent, skipped := SendSessionReminders(context.Background(), nil, "2024-06-11", sender, listerOf(rows, nil))
	if sent != 2 || skipped != 0 {
		t.Errorf("tudo enviado: sent=%d skipped=%d, quer 2,0", sent, skipped)
	}
	if !strings.Contains(sender.sent[0], "Maria") || !strings.Contains(sender.sent[0], "amanhã, 11/06/2024 às 14:00") {
		t.Errorf("mensagem errada: %q", sender.sent[0])
	}
}

func TestSendSessionRemindersInvalidPhoneSkipped(t *testing.T) {
	bad := reminderRow("Sem Fone", "123")
	rows := []repo.SessionReminderRow{bad, reminderRow("Maria", "11987654321")}
	sender := &mockSender{}
	sent, skipped := SendSessionReminders(context.Background(), nil, "2024-06-11", sender, listerOf(rows, nil))
	if sent != 1 || skipped != 1 {
		t.Errorf("telefone inválido: sent=%d skipped=%d, quer 1,1", sent, skipped)
	}
}

func TestSendSessionRemindersFailureDoesNotStopOthers(t *testing.T) {
	rows := []repo.SessionReminderRow{reminderRow("Maria", "11987654321"), reminderRow("João", "11912340000")}
	sender := &mockSender{failFor: "+5511987654321"}
	sent, skipped := SendSessionReminders(context.Background(), nil, "2024-06-11", sender, listerOf(rows, nil))
	if sent != 1 || skipped != 1 {
		t.Errorf("falha parcial: sent=%d skipped=%d, quer 1,1", sent, skipped)
	}
}
