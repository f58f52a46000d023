// Package api exposes the casino over HTTP. Handlers decode and
// validate requests, delegate to the settlement service and map its
// errors to status codes; no game or money logic lives here.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/tradege/stek-sub008/internal/casino"
	"github.com/tradege/stek-sub008/internal/games"
	"github.com/tradege/stek-sub008/internal/models"
)

// Casino is the slice of the settlement service the handlers use.
type Casino interface {
	Play(ctx context.Context, req casino.PlayRequest) (*casino.PlayResult, error)
	Deposit(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal, externalRef string) (*casino.DepositResult, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, currency string, amount decimal.Decimal) (*models.LedgerEntry, error)
	ResolveWithdrawal(ctx context.Context, entryID uuid.UUID, approve bool) error
	GetSeedInfo(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, error)
	SetClientSeed(ctx context.Context, userID uuid.UUID, game, clientSeed string) error
	RotateSeed(ctx context.Context, userID uuid.UUID, game string) (*models.SeedPair, *models.SeedPair, error)
	VerifyRound(game, serverSeed, clientSeed string, nonce uint64, params games.Params) (*games.Result, string, error)
	ListBets(ctx context.Context, userID uuid.UUID, limit int) ([]models.BetRound, error)
	StartSession(ctx context.Context, req casino.StartSessionRequest) (*casino.SessionView, error)
	AdvanceSession(ctx context.Context, req casino.AdvanceRequest) (*casino.SessionView, error)
	CashOut(ctx context.Context, userID uuid.UUID, game string, sessionID uuid.UUID) (*casino.SessionView, error)
	GetSession(ctx context.Context, userID uuid.UUID, game string, sessionID uuid.UUID) (*casino.SessionView, error)
}

// Server handles HTTP requests.
type Server struct {
	casino   Casino
	log      *logrus.Entry
	validate *validator.Validate
}

// NewServer creates a new API server.
func NewServer(c Casino, log *logrus.Logger) *Server {
	return &Server{
		casino:   c,
		log:      log.WithField("component", "api"),
		validate: validator.New(),
	}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/games", s.handleListGames)
		r.Post("/play", s.handlePlay)
		r.Post("/verify", s.handleVerify)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/{sessionID}", s.handleGetSession)
			r.Post("/{sessionID}/advance", s.handleAdvanceSession)
			r.Post("/{sessionID}/cashout", s.handleCashOut)
		})

		r.Route("/seeds", func(r chi.Router) {
			r.Get("/{game}", s.handleGetSeed)
			r.Put("/{game}/client", s.handleSetClientSeed)
			r.Post("/{game}/rotate", s.handleRotateSeed)
		})

		r.Get("/bets", s.handleListBets)
		r.Post("/withdrawals", s.handleRequestWithdrawal)

		r.Post("/webhooks/deposits", s.handleDepositWebhook)
		r.Post("/admin/withdrawals/{entryID}/resolve", s.handleResolveWithdrawal)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Info("request handled")
	})
}

// userID reads the authenticated user from the request. Upstream
// authentication terminates at the gateway and forwards the identity
// in a header.
func (s *Server) userID(r *http.Request) (uuid.UUID, error) {
	raw := r.Header.Get("X-User-ID")
	if raw == "" {
		return uuid.Nil, errMissingUser
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errMissingUser
	}
	return id, nil
}

// decode unmarshals and validates a JSON request body.
func (s *Server) decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadBody
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("failed to encode response")
	}
}
