// Package http exposes the messaging webhook and the health endpoints.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/twilio/twilio-go/client"

	"masraf/internal/cache"
	"masraf/internal/ledger"
	applog "masraf/internal/log"
	"masraf/internal/middleware/ratelimit"
	"masraf/internal/middleware/trace"
	"masraf/internal/services"
)

// MessageHandler turns an inbound message into reply text.
type MessageHandler interface {
	Handle(ctx context.Context, in services.Inbound) string
}

type Options struct {
	Logger *applog.Logger
	// AuthToken enables signature validation when ValidateSignature is set.
	AuthToken         string
	ValidateSignature bool
	// PublicURL is the webhook URL as configured at the provider. When empty
	// it is rebuilt from the request and forwarding headers.
	PublicURL          string
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	handler   MessageHandler
	ledger    ledger.Info
	limiter   *ratelimit.Limiter
	validator *client.RequestValidator
	publicURL string
	now       func() time.Time

	// replies remembers the answer per provider message id so that a
	// redelivered webhook does not append the same rows again.
	replies     *cache.LRU[string]
	stopCleanup context.CancelFunc

	shutdownOnce sync.Once
}

const (
	replyCacheSize = 1000
	replyCacheTTL  = 30 * time.Minute
)

func NewServer(addr string, handler MessageHandler, info ledger.Info, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		handler:   handler,
		ledger:    info,
		publicURL: opts.PublicURL,
		now:       time.Now,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
		replies: cache.NewLRU[string](replyCacheSize, replyCacheTTL),
	}
	cleanupCtx, stop := context.WithCancel(context.Background())
	s.stopCleanup = stop
	go cache.RunCleanup(cleanupCtx, 5*time.Minute, s.replies)
	if opts.ValidateSignature {
		v := client.NewRequestValidator(opts.AuthToken)
		s.validator = &v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleWebhook)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", handleHealthz)

	tracer := trace.NewMiddleware(ExtractClientIP)
	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(logger)(tracer.Middleware(applog.AccessLog(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Replies wait for media fetch and model calls.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Shutdown stops the background cleanups and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.stopCleanup()
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

type healthResponse struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Ledger    string `json:"ledger"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:    "ok",
		Backend:   s.ledger.Backend,
		Ledger:    s.ledger.Location,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
