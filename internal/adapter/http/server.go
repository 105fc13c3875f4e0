package adapthttp

import (
	"log/slog"
	"net/http"
	"time"

	"fuellog/internal/app"
	"fuellog/internal/domain"
	applog "fuellog/internal/log"

	"github.com/gorilla/websocket"
)

// Services bundles the application services the HTTP adapter drives.
type Services struct {
	Fuel     *app.FuelService
	Stats    *app.StatsService
	Receipts *app.ReceiptService
	Auth     *app.AuthService
	Feed     *app.Feed
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	fuel     *app.FuelService
	stats    *app.StatsService
	receipts *app.ReceiptService
	authSvc  *app.AuthService
	feed     *app.Feed
	webDir   string

	oidcConfig  OIDCConfig
	disableAuth bool
	localUser   *domain.User

	receiptLimiter *RateLimiter
	upgrader       websocket.Upgrader
	pingInterval   time.Duration
	log            *slog.Logger
}

// New creates a Server wired to the given application services.
func New(svc Services, webDir string) *Server {
	return &Server{
		fuel:           svc.Fuel,
		stats:          svc.Stats,
		receipts:       svc.Receipts,
		authSvc:        svc.Auth,
		feed:           svc.Feed,
		webDir:         webDir,
		receiptLimiter: NewRateLimiter(10, 3),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		pingInterval: 30 * time.Second,
		log:          applog.WithComponent(nil, applog.ComponentHTTP),
	}
}

// WithoutAuth disables authentication; every request acts as user, which
// must already exist in the store. Intended for tests and trusted
// single-user installs.
func (s *Server) WithoutAuth(user *domain.User) *Server {
	s.disableAuth = true
	s.localUser = user
	return s
}

// WithOIDC enables SSO login.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// WithLogger sets the logger used for access logs and handler errors.
func (s *Server) WithLogger(logger *slog.Logger) *Server {
	if logger != nil {
		s.log = applog.WithComponent(logger, applog.ComponentHTTP)
	}
	return s
}

// WithReceiptLimit sets the per-user receipt extraction rate.
func (s *Server) WithReceiptLimit(perMinute, burst int) *Server {
	s.receiptLimiter = NewRateLimiter(perMinute, burst)
	return s
}

// ReceiptLimiter exposes the receipt limiter so its idle entries can be swept.
func (s *Server) ReceiptLimiter() *RateLimiter {
	return s.receiptLimiter
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/setup", s.handleSetupUser)
	api.HandleFunc("/auth/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	protected := http.NewServeMux()
	protected.HandleFunc("/auth/me", s.handleMe)

	protected.HandleFunc("/records", s.handleRecords)
	protected.HandleFunc("/records/{id}", s.handleRecord)

	protected.HandleFunc("/stats/summary", s.handleStatsSummary)
	protected.HandleFunc("/stats/monthly", s.handleStatsMonthly)
	protected.HandleFunc("/stats/efficiency", s.handleStatsEfficiency)
	protected.HandleFunc("/stats/usage", s.handleStatsUsage)
	protected.HandleFunc("/calendar", s.handleCalendar)

	protected.HandleFunc("/receipts/extract", s.handleReceiptExtract)
	protected.HandleFunc("/live", s.handleLive)

	api.Handle("/", s.authMiddleware(protected))

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
