package bootstrap

import (
	"context"
	"log"

	"shoppinglens-be/internal/config"
	"shoppinglens-be/internal/controller"
	"shoppinglens-be/internal/handler"
	"shoppinglens-be/internal/metrics"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/internal/repository/memory"
	"shoppinglens-be/internal/service"
	"shoppinglens-be/internal/voice"
	"shoppinglens-be/internal/websocket"
	"shoppinglens-be/pkg/llm"
	"shoppinglens-be/pkg/llm/factory"
	pktNats "shoppinglens-be/pkg/nats"
	"shoppinglens-be/pkg/pickup"
	"shoppinglens-be/pkg/research"
	"shoppinglens-be/pkg/summary"
	"shoppinglens-be/pkg/tools"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	SessionController controller.ISessionController
	VoiceController   controller.IVoiceController
	SystemController  controller.ISystemController

	// WebSockets
	StreamHandler *handler.StreamHandler
	WebSocketHub  *websocket.Hub

	// Background Services (Exposed for main.go to run)
	ConsumerService   service.IConsumerService
	DetectionConsumer *service.DetectionConsumerService // nil without NATS
	QuestionListener  *voice.QuestionListener           // nil without Redis

	Logger logger.ILogger

	pubSub *gochannel.GoChannel
	rdb    *redis.Client
	nc     *pktNats.Conn
}

func NewContainer(cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.App.WsLogFilePath)

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermill.NewStdLogger(false, false),
	)

	// 3. Infrastructure
	// NATS
	var natsConn *pktNats.Conn
	if cfg.App.NatsURL != "" {
		conn, err := pktNats.Connect(context.Background(), cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS: %v", err)
		} else {
			natsConn = conn
		}
	}

	// Redis
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb = redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
	}

	// LLM Provider (optional)
	llmProvider, err := factory.NewLLMProvider(factory.Config{
		Provider: cfg.Ai.LLMProvider,
		Model:    cfg.Ai.LLMModel,
		BaseURL:  cfg.Ai.LLMBaseURL,
		APIKey:   cfg.Ai.LLMAPIKey,
		Timeout:  cfg.Ai.LLMTimeout,
	})
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	logProvider(llmProvider, cfg.Ai)

	// 4. Domain
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)
	metrics.TrackSessions(sessionRepo.Count)
	bridge := pickup.NewBridge(cfg.Admission.Threshold, cfg.Admission.Debounce)

	toolset := tools.Toolset{
		Search: tools.NewWebSearcher(tools.SearchConfig{
			SearxngURL: cfg.Search.SearxngURL,
			Limit:      cfg.Search.Limit,
			Timeout:    cfg.Search.Timeout,
			UserAgent:  cfg.Search.UserAgent,
		}, sysLogger),
		Fetch: tools.NewHTTPFetcher(tools.FetchConfig{
			Timeout:   cfg.Search.FetchTimeout,
			UserAgent: cfg.Search.FetchUserAgent,
			CacheSize: cfg.Search.FetchCacheSize,
			CacheTTL:  cfg.Search.FetchCacheTTL,
		}, sysLogger),
		Extract: tools.NewProductExtractor(llmProvider, sysLogger),
		Compare: tools.NewProductComparer(llmProvider, sysLogger),
		Buy:     newBuyer(cfg.Payment, sysLogger),
	}

	strategy, err := summary.NewStrategy(cfg.Ai.SummaryStrategy, llmProvider, sysLogger)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize summary strategy: %v", err)
	}

	// 5. Transports
	wsHub := websocket.NewHub(rdb, wsLogger)

	var room service.RoomDelivery
	if rdb != nil && cfg.Voice.Enabled {
		room = voice.NewRoomPublisher(rdb, sysLogger)
	}
	broadcaster := service.NewBroadcastService(wsHub, room, sysLogger)

	// 6. Services
	publisherService := service.NewEventPublisherService(pubSub, service.LifecycleTopic)

	var sinks []service.EventSink
	if natsConn != nil {
		sinks = append(sinks, pktNats.NewPublisher(natsConn))
	}
	consumerService := service.NewConsumerService(pubSub, service.LifecycleTopic, sysLogger, sinks...)

	orchestrator := service.NewOrchestratorService(service.OrchestratorDeps{
		Store:     sessionRepo,
		Research:  research.NewPipeline(toolset, sysLogger),
		Summary:   strategy,
		Sink:      broadcaster,
		Buyer:     toolset.Buy,
		Events:    publisherService,
		Admission: bridge,
		Logger:    sysLogger,
	})
	admissionService := service.NewAdmissionService(bridge, orchestrator, publisherService, sysLogger)

	var detectionConsumer *service.DetectionConsumerService
	if natsConn != nil {
		detectionConsumer = service.NewDetectionConsumerService(pktNats.NewSubscriber(natsConn, sysLogger), admissionService, sysLogger)
	}

	var questionListener *voice.QuestionListener
	if rdb != nil && cfg.Voice.Enabled {
		questionListener = voice.NewQuestionListener(rdb, orchestrator.HandleQuestion, sysLogger)
	}

	// 7. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		SessionController: controller.NewSessionController(orchestrator, admissionService, sessionRepo),
		VoiceController: controller.NewVoiceController(
			cfg.Voice,
			cfg.Detector,
			voice.NewTokenIssuer(cfg.Voice.APIKey, cfg.Voice.APISecret, cfg.Voice.TokenTTL),
		),
		SystemController: controller.NewSystemController(),

		StreamHandler: handler.NewStreamHandler(wsHub, broadcaster, wsLogger),
		WebSocketHub:  wsHub,

		ConsumerService:   consumerService,
		DetectionConsumer: detectionConsumer,
		QuestionListener:  questionListener,

		Logger: sysLogger,

		pubSub: pubSub,
		rdb:    rdb,
		nc:     natsConn,
	}
}

// Start launches the hub loop and every optional ingress. It returns once
// they are running; ctx cancellation stops them.
func (c *Container) Start(ctx context.Context) {
	go c.WebSocketHub.Run(ctx)

	if err := c.ConsumerService.Consume(ctx); err != nil {
		c.Logger.Error("Bootstrap", "Lifecycle relay not started", map[string]interface{}{"error": err.Error()})
	}

	if c.DetectionConsumer != nil {
		if err := c.DetectionConsumer.Start(ctx); err != nil {
			c.Logger.Error("Bootstrap", "Detection consumer not started", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.QuestionListener != nil {
		go func() {
			if err := c.QuestionListener.Listen(ctx); err != nil && ctx.Err() == nil {
				c.Logger.Error("Bootstrap", "Voice question listener stopped", map[string]interface{}{"error": err.Error()})
			}
		}()
	}
}

func (c *Container) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.pubSub.Close()
}

func newBuyer(cfg config.PaymentConfig, log logger.ILogger) tools.Buyer {
	switch {
	case cfg.MidtransServerKey != "":
		return tools.NewMidtransBuyer(tools.MidtransConfig{
			ServerKey:    cfg.MidtransServerKey,
			IsProduction: cfg.MidtransIsProduction,
			FinishURL:    cfg.MidtransFinishURL,
		}, log)
	case cfg.StubEnabled:
		return tools.StubBuyer{}
	default:
		return nil
	}
}

func logProvider(provider llm.LLMProvider, cfg config.AIConfig) {
	if provider == nil {
		log.Printf("[INFO] No LLM Provider configured, using heuristic extraction and summaries")
		return
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.LLMProvider, cfg.LLMModel)
}
