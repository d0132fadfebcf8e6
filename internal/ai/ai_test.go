package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/riqueLenis/cognifyPsi/internal/config"
)

func testClient(provider string, groqURL string) *Client {
	cfg := &config.Config{
		AIProvider: provider,
		GroqAPIKey: "test-key",
		GroqModel:  "test-model",
	}
	c := NewClient(cfg)
	c.HTTP = &http.Client{Timeout: 5 * time.Second}
	if groqURL != "" {
		c.GroqBaseURL = groqURL
	}
	return c
}

func TestInvokeUnknownProvider(t *testing.T) {
	c := testClient("oracle", "")
	_, err := c.Invoke(context.Background(), "oi", nil)
	var aiErr *Error
	if !errors.As(err, &aiErr) || aiErr.Status != http.StatusBadRequest {
		t.Fatalf("provedor desconhecido deveria dar 400, veio %v", err)
	}
}

func TestInvokeMissingKey(t *testing.T) {
	c := testClient("groq", "")
	c.Cfg.GroqAPIKey = ""
	_, err := c.Invoke(context.Background(), "oi", nil)
	var aiErr *Error
	if !errors.As(err, &aiErr) || aiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("chave ausente deveria dar 503, veio %v", err)
	}
}

func TestInvokeOpenAICompatible(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"resumo":"ok"}`}},
			},
		})
	}))
	defer srv.Close()

	c := testClient("groq", srv.URL)
	out, err := c.Invoke(context.Background(), "resuma", json.RawMessage(`{"type":"object"}`))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if string(out) != `{"resumo":"ok"}` {
		t.Errorf("resposta = %s", out)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("messages = %v", gotBody["messages"])
	}
	system, _ := msgs[0].(map[string]interface{})
	if content, _ := system["content"].(string); !strings.Contains(content, "JSON válido") || !strings.Contains(content, "schema JSON") {
		t.Errorf("instrução de sistema incompleta: %q", content)
	}
}

func TestInvokeNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "com certeza! aqui está..."}},
			},
		})
	}))
	defer srv.Close()

	c := testClient("groq", srv.URL)
	_, err := c.Invoke(context.Background(), "resuma", nil)
	var aiErr *Error
	if !errors.As(err, &aiErr) || aiErr.Status != http.StatusBadGateway {
		t.Fatalf("texto solto deveria dar 502, veio %v", err)
	}
}

func TestInvokeUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	}))
	defer srv.Close()

	c := testClient("groq", srv.URL)
	_, err := c.Invoke(context.Background(), "resuma", nil)
	var aiErr *Error
	if !errors.As(err, &aiErr) {
		t.Fatalf("quer *ai.Error, veio %v", err)
	}
	if aiErr.Status != http.StatusTooManyRequests || aiErr.Code != "rate limit exceeded" {
		t.Errorf("erro upstream deveria propagar status e mensagem, veio %d %q", aiErr.Status, aiErr.Code)
	}
}

func TestSystemInstructionWithoutSchema(t *testing.T) {
	got := systemInstruction(nil)
	if strings.Contains(got, "schema") {
		t.Errorf("sem schema não deveria mencionar schema: %q", got)
	}
}
