package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Keys   APIKeys
	Ai     AIConfig
	Search SearchConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	RedisURL           string
	SnapshotsEnabled   bool
}

type APIKeys struct {
	GoogleGemini    string
	Tavily          string
	SerpAPI         string
	HuggingFace     string
	TurnEventsTopic string
}

type AIConfig struct {
	LLMProvider   string // "ollama", "gemini", "huggingface"
	LLMModel      string // e.g. "llama3", "gemini-1.5-flash"
	OllamaBaseURL string
}

type SearchConfig struct {
	Provider string // "tavily" or "serpapi"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			SnapshotsEnabled:   getEnvAsBool("CONVERSATION_SNAPSHOTS_ENABLED", false),
		},
		Keys: APIKeys{
			GoogleGemini:    getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Tavily:          getEnv("TAVILY_API_KEY", ""),
			SerpAPI:         getEnv("SERPAPI_API_KEY", ""),
			HuggingFace:     getEnv("HUGGINGFACE_API_KEY", ""),
			TurnEventsTopic: getEnv("TURN_EVENTS_TOPIC_NAME", "TURN_STAGE_COMPLETED"),
		},
		Ai: AIConfig{
			LLMProvider:   getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:      getEnv("LLM_MODEL", "llama3"),
			OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		},
		Search: SearchConfig{
			Provider: getEnv("SEARCH_PROVIDER", "tavily"),
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

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
