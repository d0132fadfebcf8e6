// Package whatsapp envia a confirmação de sessão agendada pelo provedor
// configurado (meta, twilio ou link wa.me).
package whatsapp

import (
	"encoding/json"
	"regexp"
	"strings"
)

var nonDigits = regexp.MustCompile(`\D`)
var isoDatePrefix = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)

// NormalizePhoneE164BR normaliza telefones brasileiros para E.164.
// Aceita com DDI 55 (12/13 dígitos) ou sem (10 fixo / 11 celular);
// qualquer outra coisa devolve "".
func NormalizePhoneE164BR(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		return "+" + digits
	}
	if len(digits) == 10 || len(digits) == 11 {
		return "+55" + digits
	}
	return ""
}

// FormatDateBR converte YYYY-MM-DD em DD/MM/YYYY; o que não casar passa intacto.
func FormatDateBR(dateOnly string) string {
	if dateOnly == "" {
		return ""
	}
	m := isoDatePrefix.FindStringSubmatch(dateOnly)
	if m == nil {
		return dateOnly
	}
	return m[3] + "/" + m[2] + "/" + m[1]
}

// ComposeConfirmation monta a mensagem de confirmação enviada ao paciente.
func ComposeConfirmation(patientName, psychologistName, dateBR, timeStr string) string {
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
		if when != "" {
			when += " às " + timeStr
		} else {
			when = timeStr
		}
	}
	return "Olá, " + pName + "!\n\n" +
		"Sua sessão com " + psy + " foi agendada para " + when + ".\n\n" +
		"Por favor, responda CONFIRMO para confirmar.\n" +
		"Se precisar reagendar, avise com antecedência. Obrigado!"
}

// Fingerprint identifica o agendamento (data/hora/profissional): se nada disso
// mudou desde o último envio, a confirmação não é reenviada.
func Fingerprint(date, timeStr, psychologistName string) string {
	b, _ := json.Marshal(map[string]string{
		"date":             date,
		"time":             timeStr,
		"psychologistName": psychologistName,
	})
	return string(b)
}
