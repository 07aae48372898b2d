package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"ai-tripplanner-be/internal/config"
	"ai-tripplanner-be/internal/pkg/logger"
	"ai-tripplanner-be/pkg/ai/orchestrator"
	"ai-tripplanner-be/pkg/ai/pipeline"
	"ai-tripplanner-be/pkg/ai/router"
	"ai-tripplanner-be/pkg/llm/factory"
	"ai-tripplanner-be/pkg/search"
	"ai-tripplanner-be/pkg/trip"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Interactive terminal client that runs the planning engine in-process,
// without the HTTP server. Useful for trying prompts and flows locally.
func main() {
	cfg := config.Load()

	llmAPIKey := cfg.Keys.HuggingFace
	if cfg.Ai.LLMProvider == "gemini" {
		llmAPIKey = cfg.Keys.GoogleGemini
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		llmAPIKey,
	)
	if err != nil {
		log.Fatalf("Failed to initialize LLM Provider: %v", err)
	}

	var searchProvider search.Provider
	if cfg.Search.Provider == "serpapi" {
		searchProvider = search.NewSerpAPIProvider(cfg.Keys.SerpAPI)
	} else {
		searchProvider = search.NewTavilyProvider(cfg.Keys.Tavily)
	}

	sysLogger := logger.NewIsolatedLogger(cfg.App.LogFilePath)
	policy := router.NewPolicy(router.NewLLMClassifier(llmProvider))
	orch := orchestrator.New(policy, pipeline.Deps{
		LLM:     llmProvider,
		Search:  searchProvider,
		Fetcher: search.NewFetcher(),
		Logger:  sysLogger,
	}, nil)

	state := trip.NewState(uuid.NewString(), "")

	title := color.New(color.FgCyan, color.Bold)
	userLabel := color.New(color.FgGreen, color.Bold)
	aiLabel := color.New(color.FgMagenta, color.Bold)
	stageLabel := color.New(color.FgYellow)

	title.Println("=== Trip Planner (interactive) ===")
	fmt.Println("Tell me about the trip you have in mind. Type 'exit' to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		userLabel.Print("\nyou> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		reply, err := orch.RunTurn(context.Background(), state, line)
		if err != nil {
			color.Red("error: %v", err)
			continue
		}

		aiLabel.Print("planner> ")
		fmt.Println(reply)
		stageLabel.Printf("[stage: %s]\n", router.StageOf(state))
	}
}
