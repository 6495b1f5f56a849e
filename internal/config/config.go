package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Db     DatabaseConfig
	Search SearchConfig
	Jira   JiraConfig
	Ai     AIConfig
	Keys   APIKeys
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
}

type DatabaseConfig struct {
	Connection string
}

type SearchConfig struct {
	BaseURL string
	ApiKey  string
}

type JiraConfig struct {
	BaseURL           string
	User              string
	ApiToken          string
	DefaultProjectKey string
	StaleDays         int
}

type AIConfig struct {
	LLMProvider       string // "gemini" or "ollama"
	LLMModel          string
	EmbeddingProvider string
	EmbeddingModel    string
	OllamaBaseURL     string
}

type APIKeys struct {
	GoogleGemini string
	GoogleSpeech string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		},
		Db: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Search: SearchConfig{
			BaseURL: getEnv("SEARCH_BASE_URL", "http://localhost:9200"),
			ApiKey:  getEnv("SEARCH_API_KEY", ""),
		},
		Jira: JiraConfig{
			BaseURL:           getEnv("JIRA_BASE_URL", ""),
			User:              getEnv("JIRA_USER", ""),
			ApiToken:          getEnv("JIRA_API_TOKEN", ""),
			DefaultProjectKey: getEnv("JIRA_DEFAULT_PROJECT_KEY", ""),
			StaleDays:         getEnvAsInt("JIRA_STALE_DAYS", 10),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "gemini"),
			LLMModel:          getEnv("LLM_MODEL", ""),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", ""),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			GoogleSpeech: getEnv("GOOGLE_SPEECH_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
