package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riqueLenis/cognifyPsi/internal/config"
)

func TestNormalizePhoneE164BR(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"(11) 98765-4321", "+5511987654321"},
		{"11987654321", "+5511987654321"},
		{"1133334444", "+551133334444"},
		{"5511987654321", "+5511987654321"},
		{"+55 11 98765-4321", "+5511987654321"},
		{"123", ""},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhoneE164BR(c.in); got != c.want {
			t.Errorf("NormalizePhoneE164BR(%q) = %q, quer %q", c.in, got, c.want)
		}
	}
}

func TestFormatDateBR(t *testing.T) {
	if got := FormatDateBR("2024-05-10"); got != "10/05/2024" {
		t.Errorf("got %q", got)
	}
	if got := FormatDateBR("amanhã"); got != "amanhã" {
		t.Errorf("formato desconhecido deveria passar intacto, veio %q", got)
	}
	if got := FormatDateBR(""); got != "" {
		t.Errorf("vazio deveria ficar vazio, veio %q", got)
	}
}

func TestComposeConfirmation(t *testing.T) {
	msg := ComposeConfirmation("Maria", "Dra. Ana", "10/05/2024", "14:00")
	if !strings.Contains(msg, "Olá, Maria!") {
		t.Errorf("saudação errada: %q", msg)
	}
	if !strings.Contains(msg, "Dra. Ana") || !strings.Contains(msg, "10/05/2024 às 14:00") {
		t.Errorf("corpo errado: %q", msg)
	}
	if !strings.Contains(msg, "CONFIRMO") {
		t.Errorf("falta o pedido de confirmação: %q", msg)
	}

	msg = ComposeConfirmation("", "", "10/05/2024", "")
	if !strings.Contains(msg, "Olá, Olá!") || !strings.Contains(msg, "a psicóloga") {
		t.Errorf("defaults não aplicados: %q", msg)
	}
}

func TestFingerprintStableAndSensitive(t *testing.T) {
	a := Fingerprint("2024-05-10", "14:00", "Dra. Ana")
	b := Fingerprint("2024-05-10", "14:00", "Dra. Ana")
	if a != b {
		t.Error("mesmo agendamento deveria dar o mesmo fingerprint")
	}
	if a == Fingerprint("2024-05-10", "15:00", "Dra. Ana") {
		t.Error("mudança de horário deveria mudar o fingerprint")
	}
}

func TestSendViaLink(t *testing.T) {
	cfg := &config.Config{WhatsAppProvider: "link"}
	s := NewSender(cfg)
	r, err := s.Send(context.Background(), "+5511987654321", "Olá, Maria!", TemplateParams{})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Prepared || r.Provider != "link" {
		t.Errorf("resultado = %+v", r)
	}
	if !strings.HasPrefix(r.URL, "https://wa.me/5511987654321?text=") {
		t.Errorf("url = %q", r.URL)
	}
	if strings.Contains(r.URL, " ") {
		t.Errorf("mensagem deveria estar urlencoded: %q", r.URL)
	}
}

func TestSendViaMetaText(t *testing.T) {
	var gotPath, gotAuth string
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.123"}]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		WhatsAppProvider:          "meta",
		WhatsAppMetaToken:         "tok",
		WhatsAppMetaPhoneNumberID: "555000",
	}
	s := NewSender(cfg)
	s.HTTP = &http.Client{Timeout: 5 * time.Second}
	s.MetaBaseURL = srv.URL

	r, err := s.Send(context.Background(), "+5511987654321", "Olá!", TemplateParams{})
	if err != nil {
		t.Fatal(err)
	}
	if r.MessageID != "wamid.123" || r.Provider != "meta" {
		t.Errorf("resultado = %+v", r)
	}
	if gotPath != "/555000/messages" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("auth = %q", gotAuth)
	}
	if payload["type"] != "text" || payload["to"] != "5511987654321" {
		t.Errorf("payload = %v", payload)
	}
}

func TestSendViaMetaTemplate(t *testing.T) {
	var payload map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.456"}]}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		WhatsAppProvider:          "meta",
		WhatsAppMetaToken:         "tok",
		WhatsAppMetaPhoneNumberID: "555000",
		WhatsAppTemplateName:      "confirmacao_sessao",
		WhatsAppTemplateLanguage:  "pt_BR",
	}
	s := NewSender(cfg)
	s.MetaBaseURL = srv.URL

	_, err := s.Send(context.Background(), "+5511987654321", "ignorado", TemplateParams{
		PatientName: "Maria", PsychologistName: "Dra. Ana", DateBR: "10/05/2024", Time: "14:00",
	})
	if err != nil {
		t.Fatal(err)
	}
	if payload["type"] != "template" {
		t.Fatalf("payload = %v", payload)
	}
	tmpl, _ := payload["template"].(map[string]interface{})
	if tmpl["name"] != "confirmacao_sessao" {
		t.Errorf("template = %v", tmpl)
	}
}

func TestSendViaTwilio(t *testing.T) {
	var gotPath string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = r.ParseForm()
		gotForm = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123"}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		WhatsAppProvider:   "twilio",
		TwilioAccountSid:   "AC000",
		TwilioAuthToken:    "secret",
		TwilioWhatsAppFrom: "+5511999990000",
	}
	s := NewSender(cfg)
	s.TwilioBaseURL = srv.URL

	r, err := s.Send(context.Background(), "+5511987654321", "Olá!", TemplateParams{})
	if err != nil {
		t.Fatal(err)
	}
	if r.MessageID != "SM123" || r.Provider != "twilio" {
		t.Errorf("resultado = %+v", r)
	}
	if gotPath != "/2010-04-01/Accounts/AC000/Messages.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotForm["From"] != "whatsapp:+5511999990000" || gotForm["To"] != "whatsapp:+5511987654321" {
		t.Errorf("form = %v", gotForm)
	}
}

func TestSendMetaUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer srv.Close()

	cfg := &config.Config{
		WhatsAppProvider:          "meta",
		WhatsAppMetaToken:         "tok",
		WhatsAppMetaPhoneNumberID: "555000",
	}
	s := NewSender(cfg)
	s.MetaBaseURL = srv.URL

	_, err := s.Send(context.Background(), "+5511987654321", "Olá!", TemplateParams{})
	if err == nil || !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Errorf("erro upstream deveria chegar na mensagem, veio %v", err)
	}
}
