package service

import (
	"context"
	"fmt"
	"strings"

	"shoppinglens-be/internal/metrics"
	"shoppinglens-be/internal/model"
	"shoppinglens-be/internal/pkg/logger"
	"shoppinglens-be/pkg/events"
	"shoppinglens-be/pkg/research"
	"shoppinglens-be/pkg/summary"
	"shoppinglens-be/pkg/tools"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	MsgPickupStarted    = "Pickup detected. Starting research."
	MsgQuestionStarted  = "Starting research from your question."
	MsgSessionEnded     = "Session ended."
	MsgNoActiveProduct  = "No active product to purchase."
	MsgBuyNotConfigured = "buy_item tool not configured."
)

// IOrchestratorService reacts to pickups, questions, purchases and session
// end. Calls for the same session are not serialized; callers that need
// ordering must serialize per session themselves.
type IOrchestratorService interface {
	HandlePickup(ctx context.Context, sessionID string, event model.PickupEvent) error
	HandleQuestion(ctx context.Context, sessionID, question string) error
	HandleBuy(ctx context.Context, sessionID, productID string) error
	HandleEnd(ctx context.Context, sessionID string) error
}

// SessionStore is the slice of the session repository the orchestrator uses.
type SessionStore interface {
	StartNewThread(sessionID, query string, seed *model.SearchSeed) model.Thread
	GetActiveThread(sessionID string) (model.Thread, bool)
	AppendMessage(sessionID, threadID string, payload model.AgentPayload)
	UpdateThreadQuery(sessionID, threadID, query string) bool
	EndSession(sessionID string)
}

type Researcher interface {
	Run(ctx context.Context, sessionID, threadID, query string) (*model.ResearchResultsPayload, error)
}

// AdmissionResetter forgets per-session admission state.
type AdmissionResetter interface {
	Reset(sessionID string)
}

type orchestratorService struct {
	store     SessionStore
	research  Researcher
	summary   summary.Strategy
	sink      IBroadcastService
	buyer     tools.Buyer
	events    IEventPublisherService
	admission AdmissionResetter
	logger    logger.ILogger
}

type OrchestratorDeps struct {
	Store     SessionStore
	Research  Researcher
	Summary   summary.Strategy
	Sink      IBroadcastService
	Buyer     tools.Buyer // optional
	Events    IEventPublisherService
	Admission AdmissionResetter // optional
	Logger    logger.ILogger
}

func NewOrchestratorService(deps OrchestratorDeps) IOrchestratorService {
	return &orchestratorService{
		store:     deps.Store,
		research:  deps.Research,
		summary:   deps.Summary,
		sink:      deps.Sink,
		buyer:     deps.Buyer,
		events:    deps.Events,
		admission: deps.Admission,
		logger:    deps.Logger,
	}
}

func (s *orchestratorService) HandlePickup(ctx context.Context, sessionID string, event model.PickupEvent) (err error) {
	defer s.observe("pickup", &err)

	seed := event.SearchSeed
	query := research.BuildQuery(seed)
	thread := s.store.StartNewThread(sessionID, query, &seed)

	s.logger.Info("Orchestrator", "Pickup started a thread", map[string]interface{}{
		"session_id": sessionID,
		"thread_id":  thread.ThreadID,
		"event_id":   event.EventID,
		"query":      query,
	})
	s.publish(ctx, events.ThreadStarted, map[string]interface{}{
		"session_id": sessionID,
		"thread_id":  thread.ThreadID,
		"query":      query,
		"origin":     "pickup",
	})

	s.emit(ctx, model.NewInfo(sessionID, thread.ThreadID, MsgPickupStarted))
	return s.researchAndSummarize(ctx, sessionID, thread.ThreadID, query, &seed)
}

func (s *orchestratorService) HandleQuestion(ctx context.Context, sessionID, question string) (err error) {
	defer s.observe("question", &err)

	thread, ok := s.store.GetActiveThread(sessionID)
	if !ok {
		query := strings.TrimSpace(question)
		fresh := s.store.StartNewThread(sessionID, query, nil)
		s.publish(ctx, events.ThreadStarted, map[string]interface{}{
			"session_id": sessionID,
			"thread_id":  fresh.ThreadID,
			"query":      query,
			"origin":     "question",
		})

		s.emit(ctx, model.NewInfo(sessionID, fresh.ThreadID, MsgQuestionStarted))
		return s.researchAndSummarize(ctx, sessionID, fresh.ThreadID, query, nil)
	}

	query := strings.TrimSpace(thread.Query + " " + question)
	s.store.UpdateThreadQuery(sessionID, thread.ThreadID, query)
	s.logger.Info("Orchestrator", "Follow-up question on active thread", map[string]interface{}{
		"session_id": sessionID,
		"thread_id":  thread.ThreadID,
		"query":      query,
	})
	return s.researchAndSummarize(ctx, sessionID, thread.ThreadID, query, thread.SearchSeed)
}

func (s *orchestratorService) HandleBuy(ctx context.Context, sessionID, productID string) (err error) {
	defer s.observe("buy", &err)

	thread, ok := s.store.GetActiveThread(sessionID)
	if !ok {
		s.emit(ctx, model.NewInfo(sessionID, "", MsgNoActiveProduct))
		return nil
	}

	if s.buyer == nil {
		s.emit(ctx, model.NewInfo(sessionID, thread.ThreadID, MsgBuyNotConfigured))
		return nil
	}

	s.publish(ctx, events.PurchaseRequested, map[string]interface{}{
		"session_id": sessionID,
		"thread_id":  thread.ThreadID,
		"product_id": productID,
	})

	result, err := s.buyer.BuyItem(ctx, model.PurchaseRequest{
		ProductID: productID,
		Product:   latestProduct(thread, productID),
	})
	if err != nil {
		s.logger.Error("Orchestrator", "Purchase failed", map[string]interface{}{
			"session_id": sessionID,
			"product_id": productID,
			"error":      err.Error(),
		})
		return fmt.Errorf("buy item: %w", err)
	}

	s.emit(ctx, model.NewInfo(sessionID, thread.ThreadID, result.Message))
	return nil
}

func (s *orchestratorService) HandleEnd(ctx context.Context, sessionID string) (err error) {
	defer s.observe("end", &err)

	s.emit(ctx, model.NewInfo(sessionID, "", MsgSessionEnded))
	s.store.EndSession(sessionID)
	if s.admission != nil {
		s.admission.Reset(sessionID)
	}

	s.publish(ctx, events.SessionEnded, map[string]interface{}{"session_id": sessionID})
	s.logger.Info("Orchestrator", "Session ended", map[string]interface{}{"session_id": sessionID})
	return nil
}

func (s *orchestratorService) researchAndSummarize(ctx context.Context, sessionID, threadID, query string, seed *model.SearchSeed) error {
	results, err := s.research.Run(ctx, sessionID, threadID, query)
	if err != nil {
		return fmt.Errorf("research %q: %w", query, err)
	}
	s.emit(ctx, results)

	closing := s.summary.Build(ctx, summary.Input{
		SessionID:    sessionID,
		ThreadID:     threadID,
		TopMatch:     results.TopMatch,
		Alternatives: results.Alternatives,
		Seed:         seed,
	})
	s.emit(ctx, closing)

	s.publish(ctx, events.ResearchCompleted, map[string]interface{}{
		"session_id":   sessionID,
		"thread_id":    threadID,
		"query":        query,
		"top_match":    results.TopMatch.Title,
		"alternatives": len(results.Alternatives),
		"summary_type": string(closing.Meta().Type),
	})
	return nil
}

// emit streams the payload, then records it on its thread. Session-level
// payloads are streamed only.
func (s *orchestratorService) emit(ctx context.Context, payload model.AgentPayload) {
	meta := payload.Meta()
	trace.SpanFromContext(ctx).AddEvent("payload.emitted", trace.WithAttributes(
		attribute.String("type", string(meta.Type)),
		attribute.String("thread_id", meta.ThreadID),
	))
	s.sink.Broadcast(ctx, meta.SessionID, payload)
	if c := collectorFrom(ctx); c != nil {
		c.add(payload)
	}
	if meta.ThreadID != "" {
		s.store.AppendMessage(meta.SessionID, meta.ThreadID, payload)
	}
}

func (s *orchestratorService) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("Orchestrator", "Lifecycle event not published", map[string]interface{}{
			"event": eventType,
			"error": err.Error(),
		})
	}
}

func (s *orchestratorService) observe(intent string, err *error) {
	result := "ok"
	if *err != nil {
		result = "error"
	}
	metrics.OrchestratorRuns.WithLabelValues(intent, result).Inc()
}

// latestProduct finds the listing a product id refers to in the thread's most
// recent research results. An id matching an alternative's source URL selects
// that alternative; anything else means the top match.
func latestProduct(thread model.Thread, productID string) *model.ExtractedProduct {
	for i := len(thread.Messages) - 1; i >= 0; i-- {
		results, ok := thread.Messages[i].(*model.ResearchResultsPayload)
		if !ok {
			continue
		}
		for _, alt := range results.Alternatives {
			if alt.SourceURL != "" && alt.SourceURL == productID {
				return &model.ExtractedProduct{
					Title:     alt.Title,
					ImageURL:  alt.ImageURL,
					Price:     alt.Price,
					Specs:     []model.ProductSpec{},
					SourceURL: alt.SourceURL,
				}
			}
		}
		top := results.TopMatch
		return &top
	}
	return nil
}
