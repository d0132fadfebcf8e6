// Package pdf gera o relatório de portabilidade de dados do paciente (LGPD,
// art. 18): tudo que a clínica guarda sobre a pessoa, em um PDF legível.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/riqueLenis/cognifyPsi/internal/repo"
)

// ExportData reúne o que entra no relatório. Records já vêm decifrados.
type ExportData struct {
	Patient      *repo.Patient
	Sessions     []repo.Session
	Transactions []repo.FinancialTransaction
	Records      []DecryptedRecord
	GeneratedAt  time.Time
	ClinicName   string
}

type DecryptedRecord struct {
	Date    string
	Type    string
	Content string
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// BuildPatientExportPDF monta o relatório completo do paciente.
func BuildPatientExportPDF(data ExportData) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	title := "Relatorio de Dados Pessoais (LGPD)"
	if data.ClinicName != "" {
		title = data.ClinicName + " - " + title
	}
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Gerado em: "+data.GeneratedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	p := data.Patient
	sectionTitle(pdf, "Dados Cadastrais")
	line(pdf, "Nome completo", p.FullName)
	line(pdf, "Data de nascimento", strValue(p.BirthDate))
	line(pdf, "CPF", strValue(p.CPF))
	line(pdf, "Telefone", strValue(p.Phone))
	line(pdf, "E-mail", strValue(p.Email))
	line(pdf, "Endereco", strValue(p.Address))
	line(pdf, "Contato de emergencia", strValue(p.EmergencyContact))
	line(pdf, "Telefone de emergencia", strValue(p.EmergencyPhone))
	line(pdf, "Convenio", strValue(p.HealthInsurance))
	line(pdf, "Status", p.Status)
	if p.ConsentGivenAt != nil {
		line(pdf, "Consentimento dado em", p.ConsentGivenAt.Format("02/01/2006 15:04"))
	}
	if p.ConsentRevokedAt != nil {
		line(pdf, "Consentimento revogado em", p.ConsentRevokedAt.Format("02/01/2006 15:04"))
	}

	pdf.Ln(4)
	sectionTitle(pdf, fmt.Sprintf("Sessoes (%d)", len(data.Sessions)))
	for _, s := range data.Sessions {
		when := s.Date
		if s.StartTime != nil && *s.StartTime != "" {
			when += " " + *s.StartTime
		}
		entry := fmt.Sprintf("%s  |  %s  |  status: %s  |  pagamento: %s", when, s.SessionType, s.Status, s.PaymentStatus)
		pdf.MultiCell(0, 5, entry, "", "", false)
	}

	pdf.Ln(4)
	sectionTitle(pdf, fmt.Sprintf("Lancamentos Financeiros (%d)", len(data.Transactions)))
	for _, t := range data.Transactions {
		entry := fmt.Sprintf("%s  |  %s  |  R$ %.2f  |  %s  |  %s",
			strValue(t.DueDate), t.Category, t.Amount, t.Status, t.Description)
		pdf.MultiCell(0, 5, entry, "", "", false)
	}

	if len(data.Records) > 0 {
		pdf.AddPage()
		sectionTitle(pdf, fmt.Sprintf("Prontuario (%d registros)", len(data.Records)))
		for _, r := range data.Records {
			pdf.SetFont("Helvetica", "B", 10)
			pdf.CellFormat(0, 6, r.Date+"  -  "+r.Type, "", 1, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, r.Content, "", "", false)
			pdf.Ln(2)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "Relatorio gerado a pedido do titular dos dados, conforme a Lei Geral de Protecao de Dados (Lei 13.709/2018).", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sectionTitle(pdf *fpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
}

func line(pdf *fpdf.Fpdf, label, value string) {
	if value == "" {
		return
	}
	pdf.CellFormat(0, 6, label+": "+value, "", 1, "L", false, 0, "")
}

// WriteExportTo escreve o relatório direto no writer da resposta HTTP.
func WriteExportTo(data ExportData, w io.Writer) error {
	b, err := BuildPatientExportPDF(data)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
