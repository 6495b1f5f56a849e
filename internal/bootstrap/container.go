package bootstrap

import (
	"context"
	"log"
	"time"

	"callcenter-assistant-be/internal/config"
	"callcenter-assistant-be/internal/controller"
	"callcenter-assistant-be/internal/handler"
	"callcenter-assistant-be/internal/pkg/logger"
	"callcenter-assistant-be/internal/repository/implementation"
	"callcenter-assistant-be/internal/service"
	internalWS "callcenter-assistant-be/internal/websocket"
	"callcenter-assistant-be/pkg/convstate"
	"callcenter-assistant-be/pkg/embedding"
	"callcenter-assistant-be/pkg/intent"
	"callcenter-assistant-be/pkg/jira"
	"callcenter-assistant-be/pkg/llm/factory"
	pkgNats "callcenter-assistant-be/pkg/nats"
	"callcenter-assistant-be/pkg/retriever/calls"
	"callcenter-assistant-be/pkg/retriever/docs"
	"callcenter-assistant-be/pkg/retriever/issues"
	"callcenter-assistant-be/pkg/searchindex"
	"callcenter-assistant-be/pkg/speech"
	"callcenter-assistant-be/pkg/translate"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController         controller.IChatController
	ConversationController controller.IConversationController
	UploadController       controller.IUploadController
	TicketController       controller.ITicketController
	CallsController        controller.ICallsController

	// Background services, run from main
	ConsumerService service.IConsumerService

	EventStreamHandler *handler.EventStreamHandler
	WebSocketHub       *internalWS.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	zapLogger := sysLogger.Zap()

	// Repositories
	conversationRepo := implementation.NewConversationRepository(db)
	messageRepo := implementation.NewMessageRepository(db)
	fileUploadRepo := implementation.NewFileUploadRepository(db)
	policyRepo := implementation.NewPolicyDocumentRepository(db)

	// Event bus (in-process work queue)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	// AI providers
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM provider: %v", err)
	}

	var embedder embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embedder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	} else {
		embedder = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini, cfg.Ai.EmbeddingModel)
	}

	transcriber := speech.NewClient(cfg.Keys.GoogleSpeech)

	// Search index
	index := searchindex.NewClient(cfg.Search.BaseURL, cfg.Search.ApiKey, 30*time.Second)

	// Issue tracker
	jiraClient := jira.NewClient(cfg.Jira.BaseURL, cfg.Jira.User, cfg.Jira.ApiToken, 30*time.Second)
	priorityCache := &jira.PriorityCache{}
	if cfg.Jira.BaseURL != "" {
		if err := priorityCache.Load(context.Background(), jiraClient, zapLogger); err != nil {
			log.Printf("[WARN] Priority cache load failed: %v", err)
		}
	}

	// NATS
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pkgNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS subscriber: %v", err)
		natsSub = nil
	}

	// Redis (cross-instance websocket fan-out)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	wsHub := internalWS.NewHub(rdb, sysLogger)
	go wsHub.Run()

	// Domain components
	classifier := intent.NewClassifier(llmProvider, zapLogger)
	translator := translate.NewTranslator(llmProvider, zapLogger)
	docsRetriever := docs.NewRetriever(index, embedder, llmProvider, zapLogger)
	issuesRetriever := issues.NewRetriever(index, embedder, llmProvider, cfg.Jira.StaleDays, zapLogger)
	callsRetriever := calls.NewRetriever(index, embedder, zapLogger)
	stateStore := convstate.NewStore()

	// Services
	publisherService := service.NewPublisherService(pubSub)
	memoryService := service.NewMemoryService(conversationRepo, messageRepo, stateStore, llmProvider, sysLogger)
	toolsService := service.NewToolsService(
		fileUploadRepo,
		transcriber,
		docsRetriever,
		jiraClient,
		priorityCache,
		llmProvider,
		cfg.Jira.DefaultProjectKey,
		sysLogger,
	)
	chatService := service.NewChatService(
		memoryService,
		toolsService,
		fileUploadRepo,
		classifier,
		translator,
		docsRetriever,
		issuesRetriever,
		callsRetriever,
		llmProvider,
		natsPub,
		sysLogger,
	)
	uploadService := service.NewUploadService(fileUploadRepo, publisherService, natsPub, cfg.App.UploadDir, sysLogger)
	policyService := service.NewPolicyService(policyRepo, index, embedder, sysLogger)
	ticketService := service.NewTicketService(jiraClient, index, embedder, sysLogger)
	consumerService := service.NewConsumerService(
		pubSub,
		fileUploadRepo,
		policyRepo,
		transcriber,
		index,
		embedder,
		llmProvider,
		sysLogger,
	)

	eventStreamHandler := handler.NewEventStreamHandler(natsSub, wsHub, sysLogger)
	if err := eventStreamHandler.Start(); err != nil {
		log.Printf("[WARN] Event stream bridge failed to start: %v", err)
	}

	return &Container{
		ChatController:         controller.NewChatController(chatService),
		ConversationController: controller.NewConversationController(memoryService),
		UploadController:       controller.NewUploadController(uploadService, policyService),
		TicketController:       controller.NewTicketController(ticketService),
		CallsController:        controller.NewCallsController(callsRetriever),
		ConsumerService:        consumerService,
		EventStreamHandler:     eventStreamHandler,
		WebSocketHub:           wsHub,
	}
}
