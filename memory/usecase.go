package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/seedchat/memkit/budget"
	"github.com/seedchat/memkit/internal/keylock"
	"github.com/seedchat/memkit/types"
)

// DefaultCreationThreshold is the minimum ingestion-time importance a
// message needs to become a durable memory.
const DefaultCreationThreshold = 0.3

// feedbackStep is how far one feedback signal nudges importance.
const feedbackStep = 0.1

// ContextCache caches rendered context blocks per agent. Implementations
// must tolerate being bypassed entirely; the engine treats the cache as
// best-effort.
type ContextCache interface {
	GetContext(ctx context.Context, agentID, conversationID, query string) (string, bool)
	SetContext(ctx context.Context, agentID, conversationID, query, text string)
	InvalidateAgent(ctx context.Context, agentID string)
}

// Metrics receives engine events. The zero implementation is a nil
// interface; every call site checks for nil.
type Metrics interface {
	MemoryCreated(agentID string, memType types.MemoryType)
	MemoriesEvicted(agentID string, n int)
	RetrievalPerformed(agentID string)
	ContextCacheHit()
	ContextCacheMiss()
}

// UseCaseConfig tunes the orchestration layer.
type UseCaseConfig struct {
	// CreationThreshold filters low-importance messages out of memory.
	CreationThreshold float64 `yaml:"creation_threshold" json:"creation_threshold"`

	// Capacity bounds memories per agent; see EvictionPolicy.
	Capacity int `yaml:"capacity" json:"capacity"`

	// SimilarityThreshold gates Similar relation creation; see RelationGraph.
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// DefaultUseCaseConfig returns the engine defaults.
func DefaultUseCaseConfig() UseCaseConfig {
	return UseCaseConfig{
		CreationThreshold:   DefaultCreationThreshold,
		Capacity:            DefaultCapacity,
		SimilarityThreshold: DefaultSimilarityThreshold,
	}
}

// UseCase orchestrates scoring, relation building, persistence,
// eviction, retrieval and context budgeting against the Store and the
// conversation collaborators. All operations are synchronous; callers
// exposing them over asynchronous conventions must await completion
// before issuing the next operation for the same agent.
type UseCase struct {
	store     Store
	scorer    *Scorer
	sim       *Similarity
	graph     *RelationGraph
	eviction  *EvictionPolicy
	retrieval *RetrievalEngine
	allocator *budget.Allocator
	locks     *keylock.KeyedMutex
	cache     ContextCache
	metrics   Metrics
	threshold float64
	now       func() time.Time
	tracer    trace.Tracer
	logger    *zap.Logger
}

// Option configures a UseCase.
type Option func(*UseCase)

// WithCache attaches a context-block cache.
func WithCache(c ContextCache) Option {
	return func(u *UseCase) { u.cache = c }
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) Option {
	return func(u *UseCase) { u.metrics = m }
}

// WithClock overrides the time source. Tests only.
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
		u.graph.now = now
		u.retrieval.now = now
	}
}

// WithAllocator overrides the default context budget allocator.
func WithAllocator(a *budget.Allocator) Option {
	return func(u *UseCase) { u.allocator = a }
}

// NewUseCase wires the engine components around a Store. Zero config
// fields fall back to engine defaults; a nil logger is replaced with a
// no-op logger.
func NewUseCase(store Store, cfg UseCaseConfig, logger *zap.Logger, opts ...Option) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.CreationThreshold
	if threshold <= 0 {
		threshold = DefaultCreationThreshold
	}

	sim := NewSimilarity()
	u := &UseCase{
		store:     store,
		scorer:    NewScorer(),
		sim:       sim,
		graph:     NewRelationGraph(store, sim, cfg.SimilarityThreshold, logger),
		eviction:  NewEvictionPolicy(store, cfg.Capacity, logger),
		retrieval: NewRetrievalEngine(store, sim, logger),
		allocator: budget.NewAllocator(budget.DefaultConfig(), nil, logger),
		locks:     keylock.New(),
		threshold: threshold,
		now:       time.Now,
		tracer:    otel.Tracer("github.com/seedchat/memkit/memory"),
		logger:    logger.With(zap.String("component", "memory_usecase")),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// ProcessMessage scores an incoming message and persists it as a memory
// when its importance clears the creation threshold. Only user messages
// are memorized. Returns true when a memory was created.
func (u *UseCase) ProcessMessage(ctx context.Context, agentID string, msg types.Message, conversationID string) bool {
	ctx, span := u.tracer.Start(ctx, "memory.ProcessMessage",
		trace.WithAttributes(attribute.String("agent.id", agentID)))
	defer span.End()

	if msg.Sender != types.SenderUser || msg.Content == "" {
		return false
	}

	importance := u.scorer.ComputeImportance(msg.Content)
	if importance < u.threshold {
		u.logger.Debug("message below creation threshold",
			zap.String("agent_id", agentID),
			zap.Float64("importance", importance))
		return false
	}

	unlock := u.locks.Lock(agentID)
	defer unlock()

	now := u.now()
	mem := types.Memory{
		ID:              uuid.NewString(),
		AgentID:         agentID,
		ConversationID:  conversationID,
		SourceMessageID: msg.ID,
		Content:         u.scorer.ExtractKeyContent(msg.Content),
		Type:            u.scorer.Classify(msg.Content),
		Importance:      importance,
		Tags:            u.scorer.ExtractTags(msg.Content),
		LastAccessedAt:  now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	existing, err := u.store.GetByAgent(ctx, agentID)
	if err != nil {
		u.logger.Warn("agent listing failed, skipping relation pass",
			zap.String("agent_id", agentID), zap.Error(err))
		existing = nil
	}

	if err := u.store.Insert(ctx, mem); err != nil {
		u.logger.Warn("memory insert failed",
			zap.String("agent_id", agentID), zap.Error(err))
		return false
	}

	u.graph.OnMemoryCreated(ctx, mem, existing)

	if evicted := u.eviction.Enforce(ctx, agentID); evicted > 0 && u.metrics != nil {
		u.metrics.MemoriesEvicted(agentID, evicted)
	}

	if u.metrics != nil {
		u.metrics.MemoryCreated(agentID, mem.Type)
	}
	if u.cache != nil {
		u.cache.InvalidateAgent(ctx, agentID)
	}

	u.logger.Info("memory created",
		zap.String("agent_id", agentID),
		zap.String("memory_id", mem.ID),
		zap.String("type", string(mem.Type)),
		zap.Float64("importance", importance))

	return true
}

// RetrieveRelevantMemories returns at most limit memories ranked by
// relevance to the query, updating access statistics on the way out.
func (u *UseCase) RetrieveRelevantMemories(ctx context.Context, agentID, query string, limit int) []types.Memory {
	ctx, span := u.tracer.Start(ctx, "memory.RetrieveRelevant",
		trace.WithAttributes(attribute.String("agent.id", agentID), attribute.Int("limit", limit)))
	defer span.End()

	unlock := u.locks.Lock(agentID)
	defer unlock()

	if u.metrics != nil {
		u.metrics.RetrievalPerformed(agentID)
	}
	return u.retrieval.RetrieveRelevant(ctx, agentID, query, limit)
}

// GenerateEnhancedContext renders the contextual memories of an agent
// into a text block for prompt assembly. Returns an empty string when
// nothing relevant is known; the conversation proceeds without memory.
func (u *UseCase) GenerateEnhancedContext(ctx context.Context, agentID, conversationID, currentMessage string) string {
	ctx, span := u.tracer.Start(ctx, "memory.GenerateEnhancedContext",
		trace.WithAttributes(attribute.String("agent.id", agentID)))
	defer span.End()

	if u.cache != nil {
		if text, ok := u.cache.GetContext(ctx, agentID, conversationID, currentMessage); ok {
			if u.metrics != nil {
				u.metrics.ContextCacheHit()
			}
			return text
		}
		if u.metrics != nil {
			u.metrics.ContextCacheMiss()
		}
	}

	unlock := u.locks.Lock(agentID)
	memories := u.retrieval.ContextualMemories(ctx, agentID, conversationID, currentMessage)
	unlock()

	text := u.retrieval.EnhancedContextText(memories)
	if u.cache != nil && text != "" {
		u.cache.SetContext(ctx, agentID, conversationID, currentMessage, text)
	}
	return text
}

// SelectContextMessages fits conversation history into the model's
// token budget. A ratio of 0 uses the configured default.
func (u *UseCase) SelectContextMessages(messages []types.Message, currentPrompt, model string, ratio float64) []types.Message {
	if ratio > 0 {
		return u.allocator.SelectWithRatio(messages, currentPrompt, model, ratio)
	}
	return u.allocator.Select(messages, currentPrompt, model)
}

// UpdateImportance nudges a memory's importance by one feedback step,
// clamped to [0,1]. The adjustment is lazy with respect to eviction: it
// only changes the ranking used by the next eviction pass.
func (u *UseCase) UpdateImportance(ctx context.Context, memoryID string, positive bool) {
	ctx, span := u.tracer.Start(ctx, "memory.UpdateImportance",
		trace.WithAttributes(attribute.String("memory.id", memoryID)))
	defer span.End()

	mem, err := u.store.GetByID(ctx, memoryID)
	if err != nil {
		lookup := u.classifyLookup(err)
		u.logger.Warn("importance feedback dropped",
			zap.String("memory_id", memoryID),
			zap.Int("status", int(lookup.Status)),
			zap.Error(err))
		return
	}

	unlock := u.locks.Lock(mem.AgentID)
	defer unlock()

	delta := feedbackStep
	if !positive {
		delta = -feedbackStep
	}
	mem.Importance = clamp01(mem.Importance + delta)
	mem.UpdatedAt = u.now()

	if err := u.store.Update(ctx, mem); err != nil {
		u.logger.Warn("importance update failed",
			zap.String("memory_id", memoryID), zap.Error(err))
		return
	}

	if u.cache != nil {
		u.cache.InvalidateAgent(ctx, mem.AgentID)
	}
}

// Relations exposes the relation graph for callers inspecting memory
// links.
func (u *UseCase) Relations() *RelationGraph {
	return u.graph
}

// classifyLookup maps a store error to the lookup taxonomy: not-found
// and collaborator failure degrade the same way at the boundary but are
// logged distinctly.
func (u *UseCase) classifyLookup(err error) types.MemoryLookup {
	if err == nil {
		return types.MemoryLookup{}
	}
	if isNotFound(err) {
		return types.MissingMemory()
	}
	return types.FailedLookup(err)
}
