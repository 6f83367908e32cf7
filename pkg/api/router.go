// Package api serves balances and the payment schedule over a read-only
// JSON API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// BalanceReader computes balances per ledger kind.
type BalanceReader interface {
	Balance(ctx context.Context, kind ledger.Kind, q ledger.Query) (decimal.Decimal, error)
	Balances(ctx context.Context, kind ledger.Kind, refs []string, scope string) (map[string]decimal.Decimal, error)
}

// ScheduleReader builds the payment schedule.
type ScheduleReader interface {
	Schedule(ctx context.Context, asOf time.Time) (*schedule.Result, error)
}

// Server holds the API dependencies.
type Server struct {
	balances BalanceReader
	schedule ScheduleReader
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates a Server. A nil logger uses slog.Default().
func NewServer(balances BalanceReader, sched ScheduleReader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		balances: balances,
		schedule: sched,
		logger:   logger,
		now:      time.Now,
	}
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/balances", func(r chi.Router) {
			r.Get("/counterparties", s.listBalances(ledger.KindCounterparty))
			r.Get("/counterparties/{ref}", s.getBalance(ledger.KindCounterparty))
			r.Get("/bank-accounts/{ref}", s.getBalance(ledger.KindBankAccount))
		})

		r.Get("/stock/{ref}", s.getBalance(ledger.KindStock))
		r.Get("/schedule", s.getSchedule)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return r
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, errorCode, description string) {
	writeJSON(w, status, ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
