package factory

import (
	"ai-tripplanner-be/pkg/llm"
	"ai-tripplanner-be/pkg/llm/gemini"
	"ai-tripplanner-be/pkg/llm/huggingface"
	"ai-tripplanner-be/pkg/llm/ollama"
	"fmt"
)

func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if apiKey == "" {
			return nil, fmt.Errorf("gemini provider requires an api key")
		}
		return gemini.NewGeminiProvider(apiKey, modelName), nil
	case "huggingface":
		return huggingface.NewHuggingFaceProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
