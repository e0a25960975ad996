package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	AppName    string
	AppVersion string
	Port       string
	Env        string
	LogLevel   string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	SessionTTL    time.Duration

	DatabaseURL string

	LLMProvider    string
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	LLMTimeout     time.Duration

	CalendarProvider string
	CalComAPIKey     string
	CalComBaseURL    string
	GoogleCalendarID string
	CalendarTimeout  time.Duration

	ClinicName   string
	ClinicTZ     string
	DentistID    string
	SlotDuration time.Duration

	UseMemoryQueue       bool
	WorkerCount          int
	ConversationQueueURL string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName:    getEnv("APP_NAME", "Dentist Appointment Scheduler"),
		AppVersion: getEnv("APP_VERSION", "0.1.0"),
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", time.Hour),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		LLMProvider:    strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "auto"))),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		CalendarProvider: strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_PROVIDER", "calcom"))),
		CalComAPIKey:     getEnv("CALCOM_API_KEY", ""),
		CalComBaseURL:    getEnv("CALCOM_BASE_URL", "https://api.cal.com/v2"),
		GoogleCalendarID: getEnv("GOOGLE_CALENDAR_ID", ""),
		CalendarTimeout:  getEnvAsDuration("CALENDAR_TIMEOUT", 10*time.Second),

		ClinicName:   getEnv("CLINIC_NAME", "Dentist Verma Clinic"),
		ClinicTZ:     getEnv("CLINIC_TZ", "Asia/Kolkata"),
		DentistID:    getEnv("DEFAULT_DENTIST_ID", "dr_verma"),
		SlotDuration: getEnvAsDuration("SLOT_DURATION", 30*time.Minute),

		UseMemoryQueue:       getEnvAsBool("USE_MEMORY_QUEUE", true),
		WorkerCount:          getEnvAsInt("WORKER_COUNT", 2),
		ConversationQueueURL: getEnv("CONVERSATION_QUEUE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "RAAS Assistant"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
