package studio

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"classkitd/internal/llm"
	"classkitd/internal/store"
	"classkitd/pkg/types"
)

// State represents the lifecycle state of the studio.
type State string

const (
	StateReady   State = "ready"
	StateLoading State = "loading"
	StateError   State = "error"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 8
	defaultMaxWait       = 60 * time.Second
	tokenCacheTTL        = 5 * time.Minute
)

// Config encapsulates all tunables for Studio construction.
type Config struct {
	Store     *store.Store
	Generator llm.Generator
	// Defaults for sampling; request overrides are applied on top.
	Params llm.Params
	// Admission queue.
	MaxQueueDepth int
	MaxWait       time.Duration
	// Cached model file info reported in /status.
	ModelInfo types.ModelFileInfo
	Logger    zerolog.Logger
	Publisher EventPublisher
}

// Studio coordinates projects and generations.
type Studio struct {
	store  *store.Store
	gen    llm.Generator
	params llm.Params
	logger zerolog.Logger
	pub    EventPublisher

	tokens *ttlcache.Cache[string, tokenEntry]

	// Queueing primitives: buffered queue slots feeding a single in-flight
	// generation slot.
	genCh   chan struct{}
	queueCh chan struct{}
	maxWait time.Duration

	mu        sync.RWMutex
	state     State
	lastErr   string
	totals    map[types.DocKind]uint64
	modelInfo types.ModelFileInfo
	startTime time.Time
}

type tokenEntry struct {
	projectID string
	role      store.Role
}

// New constructs a Studio from Config.
func New(cfg Config) *Studio {
	s := &Studio{
		store:     cfg.Store,
		gen:       cfg.Generator,
		params:    cfg.Params,
		logger:    cfg.Logger,
		pub:       cfg.Publisher,
		state:     StateReady,
		totals:    make(map[types.DocKind]uint64),
		modelInfo: cfg.ModelInfo,
		startTime: time.Now(),
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	depth := cfg.MaxQueueDepth
	if depth <= 0 {
		depth = defaultMaxQueueDepth
	}
	s.queueCh = make(chan struct{}, depth)
	s.genCh = make(chan struct{}, 1)
	s.maxWait = cfg.MaxWait
	if s.maxWait <= 0 {
		s.maxWait = defaultMaxWait
	}
	s.tokens = ttlcache.New[string, tokenEntry](
		ttlcache.WithTTL[string, tokenEntry](tokenCacheTTL),
	)
	go s.tokens.Start()
	return s
}

// Close stops background loops. The store is closed by the caller that
// opened it.
func (s *Studio) Close() error {
	s.tokens.Stop()
	return nil
}

// Ready reports whether the studio can serve generation requests.
func (s *Studio) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateReady && s.gen != nil
}

// Backend returns the active generator name.
func (s *Studio) Backend() string {
	if s.gen == nil {
		return ""
	}
	return s.gen.Name()
}

// SubscribeEvents returns a live event feed when the studio was built with a
// StreamPublisher. Otherwise the subscription never delivers.
func (s *Studio) SubscribeEvents() (<-chan Event, func()) {
	if sp, ok := s.pub.(*StreamPublisher); ok {
		return sp.Subscribe()
	}
	return make(chan Event), func() {}
}

func (s *Studio) setLastError(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

func (s *Studio) bumpTotal(kind types.DocKind) {
	s.mu.Lock()
	s.totals[kind]++
	s.mu.Unlock()
}

// Status builds a detailed status response for /status.
func (s *Studio) Status() types.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]uint64, len(s.totals))
	for k, v := range s.totals {
		totals[string(k)] = v
	}
	return types.StatusResponse{
		State:            string(s.state),
		Backend:          s.Backend(),
		Model:            s.modelInfo,
		UptimeSeconds:    int64(time.Since(s.startTime) / time.Second),
		ServerTimeUnix:   time.Now().Unix(),
		GenerationsTotal: totals,
		QueueLen:         len(s.queueCh),
		Inflight:         len(s.genCh),
		MaxQueueDepth:    cap(s.queueCh),
		LastError:        s.lastErr,
	}
}
