package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port               string
	DatabaseURL        string
	JWTSecret          []byte
	CORSOrigins        []string
	RequestTimeoutSec  int
	DBMaxConns         int
	DataEncryptionKeys string
	CurrentDataKeyVer  string
	AppPublicURL       string
	// Provedor de IA para análise de sessões (gemini | groq | hf)
	AIProvider   string
	GeminiAPIKey string
	GeminiModel  string
	GroqAPIKey   string
	GroqModel    string
	HFToken      string
	HFModel      string
	// WhatsApp para confirmação de sessão agendada
	WhatsAppEnabled           bool
	WhatsAppProvider          string // meta | twilio | link | disabled
	WhatsAppMetaToken         string
	WhatsAppMetaPhoneNumberID string
	WhatsAppTemplateName      string
	WhatsAppTemplateLanguage  string
	TwilioAccountSid          string
	TwilioAuthToken           string
	TwilioWhatsAppFrom        string
}

func Load() *Config {
	// .env é opcional (dev local); em produção as variáveis vêm do ambiente.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if len(jwtSecret) < 32 {
		jwtSecret = "default-secret-min-32-chars-required!!"
	}
	cors := os.Getenv("CORS_ORIGINS")
	if cors == "" {
		cors = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(cors, ",") {
		if t := strings.TrimSpace(o); t != "" {
			origins = append(origins, t)
		}
	}
	return &Config{
		Port:               port,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		JWTSecret:          []byte(jwtSecret),
		CORSOrigins:        origins,
		RequestTimeoutSec:  atoiDefault(os.Getenv("REQUEST_TIMEOUT_SEC"), 30),
		DBMaxConns:         atoiDefault(os.Getenv("DB_MAX_CONNS"), 0),
		DataEncryptionKeys: getEnv("DATA_ENCRYPTION_KEYS", "v1:AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"),
		CurrentDataKeyVer:  getEnv("CURRENT_DATA_KEY_VERSION", "v1"),
		AppPublicURL:       getEnv("APP_PUBLIC_URL", "http://localhost:5173"),

		AIProvider:   strings.ToLower(strings.TrimSpace(getEnv("AI_PROVIDER", "gemini"))),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GroqModel:    getEnv("GROQ_MODEL", "openai/gpt-oss-20b"),
		HFToken:      os.Getenv("HF_TOKEN"),
		HFModel:      getEnv("HF_MODEL", "deepseek-ai/DeepSeek-R1:fastest"),

		WhatsAppEnabled:           strings.EqualFold(strings.TrimSpace(os.Getenv("WHATSAPP_ENABLED")), "true"),
		WhatsAppProvider:          strings.ToLower(strings.TrimSpace(getEnv("WHATSAPP_PROVIDER", "disabled"))),
		WhatsAppMetaToken:         os.Getenv("WHATSAPP_META_TOKEN"),
		WhatsAppMetaPhoneNumberID: os.Getenv("WHATSAPP_META_PHONE_NUMBER_ID"),
		WhatsAppTemplateName:      os.Getenv("WHATSAPP_TEMPLATE_NAME"),
		WhatsAppTemplateLanguage:  getEnv("WHATSAPP_TEMPLATE_LANGUAGE", "pt_BR"),
		TwilioAccountSid:          os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:           os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppFrom:        os.Getenv("TWILIO_WHATSAPP_FROM"),
	}
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return d
		}
		n = n*10 + int(r-'0')
	}
	return n
}
