package bootstrap

import (
	"log"

	"ai-tripplanner-be/internal/config"
	"ai-tripplanner-be/internal/controller"
	"ai-tripplanner-be/internal/pkg/logger"
	"ai-tripplanner-be/internal/repository/memory"
	"ai-tripplanner-be/internal/repository/redisstore"
	"ai-tripplanner-be/internal/service"
	"ai-tripplanner-be/pkg/ai/orchestrator"
	"ai-tripplanner-be/pkg/ai/pipeline"
	"ai-tripplanner-be/pkg/ai/router"
	"ai-tripplanner-be/pkg/llm/factory"
	"ai-tripplanner-be/pkg/search"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	// Controllers
	ChatController  controller.IChatController
	AdminController controller.IAdminController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
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
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	var searchProvider search.Provider
	if cfg.Search.Provider == "serpapi" {
		searchProvider = search.NewSerpAPIProvider(cfg.Keys.SerpAPI)
		log.Printf("[INFO] Using Search Provider: SERPAPI")
	} else {
		searchProvider = search.NewTavilyProvider(cfg.Keys.Tavily)
		log.Printf("[INFO] Using Search Provider: TAVILY")
	}

	// 4. Conversation Storage
	conversationRepo := memory.NewConversationRepository()

	var snapshots *redisstore.SnapshotStore
	if cfg.App.SnapshotsEnabled {
		snapshots, err = redisstore.NewSnapshotStore(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Snapshot store disabled: %v", err)
			snapshots = nil
		}
	}

	// 5. Planning Engine
	publisherService := service.NewPublisherService(cfg.Keys.TurnEventsTopic, pubSub)
	consumerService := service.NewConsumerService(pubSub, cfg.Keys.TurnEventsTopic, sysLogger)

	policy := router.NewPolicy(router.NewLLMClassifier(llmProvider))
	orch := orchestrator.New(policy, pipeline.Deps{
		LLM:     llmProvider,
		Search:  searchProvider,
		Fetcher: search.NewFetcher(),
		Logger:  sysLogger,
	}, publisherService)

	// 6. Services
	plannerService := service.NewPlannerService(orch, conversationRepo, snapshots, sysLogger)
	adminService := service.NewAdminService(sysLogger)

	// 7. Controllers
	return &Container{
		ChatController:  controller.NewChatController(plannerService),
		AdminController: controller.NewAdminController(adminService),

		ConsumerService: consumerService,
		Logger:          sysLogger,
	}
}
