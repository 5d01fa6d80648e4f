// Package http serves the budget JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"buckets/internal/cache"
	"buckets/internal/core"
	"buckets/internal/log"
	"buckets/internal/middleware/ratelimit"
	"buckets/internal/middleware/security"
	"buckets/internal/middleware/trace"
	"buckets/internal/services"
)

// Service is the budget API the handlers depend on.
// *services.BudgetService implements it.
type Service interface {
	Preferences(ctx context.Context, userID string) (core.UserPreferences, error)
	SavePreferences(ctx context.Context, userID string, p core.UserPreferences) (core.UserPreferences, error)

	SetWeeklyIncome(ctx context.Context, userID string, date core.Date, income core.Money) (services.WeekAllocation, error)
	DeleteWeek(ctx context.Context, userID string, date core.Date) error
	ListWeeks(ctx context.Context, userID string) ([]core.WeeklyIncome, error)
	WeekSummary(ctx context.Context, userID string, date core.Date) (core.WeekSummary, error)

	AddTransaction(ctx context.Context, userID string, weekDate core.Date, in services.TransactionInput) (core.Transaction, error)
	EditTransaction(ctx context.Context, userID string, id int64, in services.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID string, id int64) error

	CoverOverspend(ctx context.Context, userID string, weekDate core.Date, req core.CoverRequest) (core.BucketTransfer, error)
	CoverSources(ctx context.Context, userID string, weekDate core.Date, target core.Bucket) ([]core.LedgerRow, error)
	Collect(ctx context.Context, userID string, weekDate core.Date, bucket core.Bucket) (core.BucketCollection, error)
	UndoCollect(ctx context.Context, userID string, weekDate core.Date, bucket core.Bucket) (services.UndoResult, error)
	AddAdjustment(ctx context.Context, userID string, adj core.Adjustment) (core.BucketCollection, error)

	ListMappings(ctx context.Context, userID string) ([]core.CategoryMapping, error)
	SetMapping(ctx context.Context, userID, raw string, bucket core.Bucket) (core.CategoryMapping, error)
	DeleteMapping(ctx context.Context, userID, raw string) error
	SuggestMapping(ctx context.Context, userID, raw string) (core.Suggestion, bool, error)

	Goals(ctx context.Context, userID string) ([]core.GoalView, error)
	CreateGoal(ctx context.Context, userID string, in services.GoalInput) (core.Goal, error)
	UpdateGoal(ctx context.Context, userID, key string, patch services.GoalPatch) (core.Goal, error)
	DeleteGoal(ctx context.Context, userID, key string) error

	Ping(ctx context.Context) error
	SummaryCacheStats() cache.Stats
}

var _ Service = (*services.BudgetService)(nil)

// Options tunes the middleware chain.
type Options struct {
	RateLimitPerMinute int
	MaxBodyBytes       int64
	// TrustedProxies are CIDRs, beyond loopback and private ranges, whose
	// forwarding headers are believed.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	svc     Service
	logger  *log.Logger
	events  *log.StructuredLogger
	started time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	detector := security.NewDetector(logger)
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}
	s := &Server{
		svc:         svc,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		started:     time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		detector:    detector,
		tracer:      trace.NewMiddleware(detector.ExtractClientIP, logger),
	}

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = security.BodyLimit(opts.MaxBodyBytes)(h)
	h = s.rateLimiter.Middleware(detector.ExtractClientIP, ratelimit.Mutating, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)
	h = log.Middleware(logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/allocations/preview", s.handleAllocationPreview)

	mux.Handle("GET /api/preferences", s.authed(s.handleGetPreferences))
	mux.Handle("PUT /api/preferences", s.authed(s.handlePutPreferences))

	mux.Handle("GET /api/weeks", s.authed(s.handleListWeeks))
	mux.Handle("POST /api/weeks", s.authed(s.handleSetIncome))
	mux.Handle("GET /api/weeks/{week}", s.authed(s.handleWeekSummary))
	mux.Handle("DELETE /api/weeks/{week}", s.authed(s.handleDeleteWeek))

	mux.Handle("POST /api/weeks/{week}/transactions", s.authed(s.handleAddTransaction))
	mux.Handle("PUT /api/transactions/{id}", s.authed(s.handleEditTransaction))
	mux.Handle("DELETE /api/transactions/{id}", s.authed(s.handleDeleteTransaction))

	mux.Handle("POST /api/weeks/{week}/transfers", s.authed(s.handleCoverOverspend))
	mux.Handle("GET /api/weeks/{week}/buckets/{bucket}/sources", s.authed(s.handleCoverSources))
	mux.Handle("POST /api/weeks/{week}/buckets/{bucket}/collect", s.authed(s.handleCollect))
	mux.Handle("DELETE /api/weeks/{week}/buckets/{bucket}/collect", s.authed(s.handleUndoCollect))
	mux.Handle("POST /api/adjustments", s.authed(s.handleAdjustment))

	mux.Handle("GET /api/mappings", s.authed(s.handleListMappings))
	mux.Handle("PUT /api/mappings", s.authed(s.handleSetMapping))
	mux.Handle("DELETE /api/mappings", s.authed(s.handleDeleteMapping))
	mux.Handle("GET /api/mappings/suggest", s.authed(s.handleSuggestMapping))

	mux.Handle("GET /api/goals", s.authed(s.handleListGoals))
	mux.Handle("POST /api/goals", s.authed(s.handleCreateGoal))
	mux.Handle("PUT /api/goals/{key}", s.authed(s.handleUpdateGoal))
	mux.Handle("DELETE /api/goals/{key}", s.authed(s.handleDeleteGoal))
}

// userHandler is a handler that needs the caller identity.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authed resolves the caller and tags the request logger with it.
func (s *Server) authed(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := requireUser(r)
		if err != nil {
			errorResponse(err).Write(w)
			return
		}
		ctx := log.NewContext(r.Context(), log.FromContext(r.Context()).With(log.FieldUserID, userID))
		next(w, r.WithContext(ctx), userID)
	})
}

// Shutdown gracefully shuts down the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Close stops background goroutines without serving. Used by tests.
func (s *Server) Close() error {
	s.rateLimiter.Stop()
	return s.Server.Close()
}
