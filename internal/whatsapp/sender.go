package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riqueLenis/cognifyPsi/internal/config"
)

const (
	metaBaseURL   = "https://graph.facebook.com/v19.0"
	twilioBaseURL = "https://api.twilio.com"
)

// Result descreve o que aconteceu com o envio. Provider "link" não envia nada:
// só prepara a URL wa.me para o profissional disparar manualmente.
type Result struct {
	Provider  string
	MessageID string
	URL       string
	Prepared  bool
	Skipped   bool
	Reason    string
}

type Sender struct {
	Cfg  *config.Config
	HTTP *http.Client

	// Sobrescritos nos testes.
	MetaBaseURL   string
	TwilioBaseURL string
}

func NewSender(cfg *config.Config) *Sender {
	return &Sender{
		Cfg:           cfg,
		HTTP:          &http.Client{Timeout: 30 * time.Second},
		MetaBaseURL:   metaBaseURL,
		TwilioBaseURL: twilioBaseURL,
	}
}

// Send entrega a mensagem ao telefone E.164 pelo provedor configurado.
// params alimenta o template da Meta quando WHATSAPP_TEMPLATE_NAME está
// definido; provedores sem template usam o texto livre.
func (s *Sender) Send(ctx context.Context, toE164, message string, params TemplateParams) (*Result, error) {
	switch s.Cfg.WhatsAppProvider {
	case "meta":
		return s.sendViaMeta(ctx, toE164, message, params)
	case "twilio":
		return s.sendViaTwilio(ctx, toE164, message)
	case "link":
		return s.prepareLink(toE164, message), nil
	}
	return &Result{Skipped: true, Reason: "unknown_provider"}, nil
}

// TemplateParams são os corpos do template de confirmação da Meta, na ordem
// em que o template os declara.
type TemplateParams struct {
	PatientName      string
	PsychologistName string
	DateBR           string
	Time             string
}

func (s *Sender) sendViaMeta(ctx context.Context, toE164, message string, params TemplateParams) (*Result, error) {
	if s.Cfg.WhatsAppMetaToken == "" || s.Cfg.WhatsAppMetaPhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp meta não configurado")
	}
	toDigits := strings.TrimPrefix(toE164, "+")

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                toDigits,
	}
	if s.Cfg.WhatsAppTemplateName != "" {
		payload["type"] = "template"
		payload["template"] = map[string]interface{}{
			"name":     s.Cfg.WhatsAppTemplateName,
			"language": map[string]string{"code": s.Cfg.WhatsAppTemplateLanguage},
			"components": []map[string]interface{}{{
				"type": "body",
				"parameters": []map[string]string{
					{"type": "text", "text": params.PatientName},
					{"type": "text", "text": params.PsychologistName},
					{"type": "text", "text": params.DateBR},
					{"type": "text", "text": params.Time},
				},
			}},
		}
	} else {
		payload["type"] = "text"
		payload["text"] = map[string]string{"body": message}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.MetaBaseURL+"/"+s.Cfg.WhatsAppMetaPhoneNumberID+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Cfg.WhatsAppMetaToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := "whatsapp_meta_error"
		if json.Unmarshal(raw, &upstream) == nil && upstream.Error.Message != "" {
			msg = upstream.Error.Message
		}
		return nil, fmt.Errorf("meta %d: %s", resp.StatusCode, msg)
	}

	var parsed struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	_ = json.Unmarshal(raw, &parsed)
	messageID := ""
	if len(parsed.Messages) > 0 {
		messageID = parsed.Messages[0].ID
	}
	return &Result{Provider: "meta", MessageID: messageID}, nil
}

func (s *Sender) sendViaTwilio(ctx context.Context, toE164, message string) (*Result, error) {
	if s.Cfg.TwilioAccountSid == "" || s.Cfg.TwilioAuthToken == "" || s.Cfg.TwilioWhatsAppFrom == "" {
		return nil, fmt.Errorf("whatsapp twilio não configurado")
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+s.Cfg.TwilioWhatsAppFrom)
	form.Set("To", "whatsapp:"+toE164)
	form.Set("Body", message)

	endpoint := s.TwilioBaseURL + "/2010-04-01/Accounts/" + s.Cfg.TwilioAccountSid + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(s.Cfg.TwilioAccountSid, s.Cfg.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream struct {
			Message string `json:"message"`
		}
		msg := "whatsapp_twilio_error"
		if json.Unmarshal(raw, &upstream) == nil && upstream.Message != "" {
			msg = upstream.Message
		}
		return nil, fmt.Errorf("twilio %d: %s", resp.StatusCode, msg)
	}

	var parsed struct {
		Sid string `json:"sid"`
	}
	_ = json.Unmarshal(raw, &parsed)
	return &Result{Provider: "twilio", MessageID: parsed.Sid}, nil
}

func (s *Sender) prepareLink(toE164, message string) *Result {
	return &Result{
		Provider: "link",
		URL:      BuildWaLink(toE164, message),
		Prepared: true,
	}
}

// BuildWaLink monta o link wa.me com a mensagem pré-preenchida.
func BuildWaLink(toE164, message string) string {
	toDigits := strings.TrimPrefix(toE164, "+")
	return "https://wa.me/" + toDigits + "?text=" + url.QueryEscape(message)
}
