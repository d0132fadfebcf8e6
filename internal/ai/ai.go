// Package ai encaminha prompts ao provedor de LLM configurado (gemini, groq ou
// huggingface) exigindo resposta em JSON puro.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/riqueLenis/cognifyPsi/internal/config"
)

// Error carrega o status HTTP que o handler deve repassar ao cliente.
type Error struct {
	Status int
	Code   string
}

func (e *Error) Error() string { return e.Code }

const (
	groqBaseURL = "https://api.groq.com/openai/v1"
	hfBaseURL   = "https://router.huggingface.co/v1"
)

type Client struct {
	Cfg  *config.Config
	HTTP *http.Client

	// Sobrescritos nos testes para apontar a um httptest.Server.
	GroqBaseURL string
	HFBaseURL   string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Cfg:         cfg,
		HTTP:        &http.Client{Timeout: 60 * time.Second},
		GroqBaseURL: groqBaseURL,
		HFBaseURL:   hfBaseURL,
	}
}

// Invoke envia o prompt ao provedor configurado e devolve o JSON da resposta.
// schema, quando presente, é anexado à instrução de sistema como guia.
func (c *Client) Invoke(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	switch c.Cfg.AIProvider {
	case "gemini", "":
		return c.invokeGemini(ctx, prompt, schema)
	case "groq":
		return c.invokeOpenAICompatible(ctx, c.GroqBaseURL, c.Cfg.GroqAPIKey, c.Cfg.GroqModel, "groq", prompt, schema)
	case "hf", "huggingface":
		return c.invokeOpenAICompatible(ctx, c.HFBaseURL, c.Cfg.HFToken, c.Cfg.HFModel, "hf", prompt, schema)
	}
	return nil, &Error{Status: http.StatusBadRequest, Code: "unknown_ai_provider"}
}

func systemInstruction(schema json.RawMessage) string {
	base := "Você é um assistente que deve responder APENAS com um JSON válido, sem markdown, sem texto extra."
	if len(schema) == 0 {
		return base
	}
	pretty := &bytes.Buffer{}
	if err := json.Indent(pretty, schema, "", "  "); err != nil {
		return base
	}
	return base + "\n\nSiga este schema JSON (aproximado) para estruturar a resposta:\n" + pretty.String()
}

func (c *Client) invokeGemini(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	if c.Cfg.GeminiAPIKey == "" {
		return nil, &Error{Status: http.StatusServiceUnavailable, Code: "gemini_api_key_not_configured"}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.Cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.Cfg.GeminiModel)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction(schema))}}
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
	}
	return ensureJSON(sb.String(), "gemini")
}

func (c *Client) invokeOpenAICompatible(ctx context.Context, baseURL, apiKey, model, provider, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	if apiKey == "" {
		return nil, &Error{Status: http.StatusServiceUnavailable, Code: provider + "_api_key_not_configured"}
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":           model,
		"temperature":     0.2,
		"response_format": map[string]string{"type": "json_object"},
		"messages": []map[string]string{
			{"role": "system", "content": systemInstruction(schema)},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var upstream struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		code := provider + "_error"
		if json.Unmarshal(raw, &upstream) == nil && upstream.Error.Message != "" {
			code = upstream.Error.Message
		}
		return nil, &Error{Status: resp.StatusCode, Code: code}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || len(parsed.Choices) == 0 {
		return nil, &Error{Status: http.StatusBadGateway, Code: provider + "_returned_non_json"}
	}
	return ensureJSON(parsed.Choices[0].Message.Content, provider)
}

// ensureJSON valida que o texto do modelo é JSON e o devolve como RawMessage.
func ensureJSON(text, provider string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if !json.Valid([]byte(trimmed)) {
		return nil, &Error{Status: http.StatusBadGateway, Code: provider + "_returned_non_json"}
	}
	return json.RawMessage(trimmed), nil
}
