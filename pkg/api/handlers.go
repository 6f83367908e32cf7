package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/erp-ledger/pkg/ledger"
	"github.com/shunichi-ikebuchi/erp-ledger/pkg/schedule"
)

// BalanceResponse represents one computed balance.
type BalanceResponse struct {
	Kind      ledger.Kind     `json:"kind"`
	EntityRef string          `json:"entity_ref"`
	Scope     string          `json:"scope,omitempty"`
	AsOf      string          `json:"as_of,omitempty"`
	Balance   decimal.Decimal `json:"balance"`
}

// BalancesResponse represents the balances of several entities.
type BalancesResponse struct {
	Kind     ledger.Kind                `json:"kind"`
	Scope    string                     `json:"scope,omitempty"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// PaymentResponse represents one scheduled payment.
type PaymentResponse struct {
	CounterpartyCode string          `json:"counterparty_code"`
	Partition        string          `json:"partition"`
	Reference        string          `json:"reference,omitempty"`
	BaseDate         string          `json:"base_date"`
	DueDate          string          `json:"due_date"`
	Amount           decimal.Decimal `json:"amount"`
	Overdue          bool            `json:"overdue,omitempty"`
}

// ScheduleResponse represents the payment schedule.
type ScheduleResponse struct {
	AsOf       string            `json:"as_of"`
	Policy     string            `json:"past_due_policy"`
	Payments   []PaymentResponse `json:"payments"`
	Omitted    []string          `json:"omitted,omitempty"`
	Unresolved int               `json:"unresolved,omitempty"`
}

// scopeParam names the query parameter that carries each view's scope.
var scopeParam = map[ledger.Kind]string{
	ledger.KindCounterparty: "scope",
	ledger.KindBankAccount:  "scope",
	ledger.KindStock:        "warehouse",
}

// getBalance handles GET /api/v1/balances/{kind}/{ref} and /api/v1/stock/{ref}.
func (s *Server) getBalance(kind ledger.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := ledger.Query{
			EntityRef: chi.URLParam(r, "ref"),
			Scope:     r.URL.Query().Get(scopeParam[kind]),
		}

		if v := r.URL.Query().Get("as_of"); v != "" {
			asOf, err := schedule.ParseDay(v)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid as_of, expected YYYY-MM-DD")
				return
			}
			q.AsOf = asOf
		}

		balance, err := s.balances.Balance(r.Context(), kind, q)
		if err != nil {
			s.writeSourceError(w, "balance", err)
			return
		}

		resp := BalanceResponse{
			Kind:      kind,
			EntityRef: q.EntityRef,
			Scope:     q.Scope,
			Balance:   balance,
		}
		if !q.AsOf.IsZero() {
			resp.AsOf = q.AsOf.Format(schedule.DateLayout)
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// listBalances handles GET /api/v1/balances/counterparties?ref=A&ref=B.
func (s *Server) listBalances(kind ledger.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refs := r.URL.Query()["ref"]
		if len(refs) == 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Missing ref")
			return
		}
		scope := r.URL.Query().Get(scopeParam[kind])

		balances, err := s.balances.Balances(r.Context(), kind, refs, scope)
		if err != nil {
			s.writeSourceError(w, "balances", err)
			return
		}

		writeJSON(w, http.StatusOK, BalancesResponse{Kind: kind, Scope: scope, Balances: balances})
	}
}

// getSchedule handles GET /api/v1/schedule?as_of=YYYY-MM-DD. as_of
// defaults to today.
func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	asOf := schedule.Day(s.now())
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := schedule.ParseDay(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_parameter", "Invalid as_of, expected YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	result, err := s.schedule.Schedule(r.Context(), asOf)
	if err != nil {
		s.writeSourceError(w, "schedule", err)
		return
	}

	writeJSON(w, http.StatusOK, newScheduleResponse(result))
}

func newScheduleResponse(result *schedule.Result) ScheduleResponse {
	resp := ScheduleResponse{
		AsOf:       result.AsOf.Format(schedule.DateLayout),
		Policy:     result.Policy.String(),
		Payments:   make([]PaymentResponse, 0, len(result.Payments)),
		Omitted:    result.Omitted,
		Unresolved: result.Unresolved,
	}
	for _, p := range result.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			CounterpartyCode: p.CounterpartyCode,
			Partition:        p.PartitionLabel,
			Reference:        p.Reference,
			BaseDate:         p.BaseDate.Format(schedule.DateLayout),
			DueDate:          p.DueDate.Format(schedule.DateLayout),
			Amount:           p.Amount,
			Overdue:          p.Overdue,
		})
	}
	return resp
}

func (s *Server) writeSourceError(w http.ResponseWriter, what string, err error) {
	switch {
	case errors.Is(err, ledger.ErrSourceUnavailable), errors.Is(err, schedule.ErrSourceUnavailable):
		s.logger.Error("source unavailable", "request", what, "error", err)
		writeJSONError(w, http.StatusServiceUnavailable, "source_unavailable", "Ledger source could not be read")
	default:
		s.logger.Error("request failed", "request", what, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "server_error", "Failed to compute "+what)
	}
}
