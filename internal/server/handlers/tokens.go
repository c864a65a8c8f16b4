package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	fulmenerrors "github.com/fulmenhq/gofulmen/errors"

	"github.com/tokenlens/tokenlens/internal/core"
	"github.com/tokenlens/tokenlens/internal/core/engine"
	"github.com/tokenlens/tokenlens/internal/core/upstream"
	apperrors "github.com/tokenlens/tokenlens/internal/errors"
	"github.com/tokenlens/tokenlens/internal/metrics"
)

const (
	missingAddressChain = "Missing required parameters: address and chain"
	missingKeyword      = "Missing required parameter: keyword"

	// MaxKlineLimit is the largest candle count accepted; larger requests get a 400.
	MaxKlineLimit = 1000
	// MaxTransactionsLimit caps the transaction page size.
	MaxTransactionsLimit = 300
)

// TokenService is the token market-data surface consumed by the API.
type TokenService interface {
	SearchTokens(ctx context.Context, keyword, chain string) (core.SearchResult, error)
	TokenDetails(ctx context.Context, ref core.TokenRef) (core.TokenDetails, error)
	Holders(ctx context.Context, ref core.TokenRef) ([]core.HolderEntry, error)
	Transactions(ctx context.Context, ref core.TokenRef, limit int, toTime string) ([]core.TransactionEntry, error)
	Risk(ctx context.Context, ref core.TokenRef) (core.RiskReport, error)
	Kline(ctx context.Context, ref core.TokenRef, interval string, limit int) (core.KlineSeries, error)
	Overview(ctx context.Context, ref core.TokenRef, txLimit int) (core.Overview, error)
	PacingSnapshot() []core.PacingSnapshot
}

// TokenHandlers serves the /api token routes.
type TokenHandlers struct {
	Service TokenService
}

// NewTokenHandlers wraps service in HTTP handlers.
func NewTokenHandlers(service TokenService) *TokenHandlers {
	return &TokenHandlers{Service: service}
}

// Failure is the error body of the token API.
type Failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

// SearchResponse is the success body of /api/search-tokens.
type SearchResponse struct {
	Success bool                `json:"success"`
	Tokens  []core.TokenSummary `json:"tokens"`
	Count   int                 `json:"count"`
	Message string              `json:"message,omitempty"`
	Keyword string              `json:"keyword"`
	Chain   string              `json:"chain"`
}

// DetailsResponse flattens the detail record next to the success flag.
type DetailsResponse struct {
	Success bool `json:"success"`
	core.TokenDetails
}

// HoldersResponse is the body of /api/token-holders.
type HoldersResponse struct {
	Success bool               `json:"success"`
	Holders []core.HolderEntry `json:"holders"`
}

// TransactionsResponse is the body of /api/token-transactions.
type TransactionsResponse struct {
	Success      bool                    `json:"success"`
	Transactions []core.TransactionEntry `json:"transactions"`
}

// RiskResponse is the body of /api/token-risk.
type RiskResponse struct {
	Success bool            `json:"success"`
	Risk    core.RiskReport `json:"risk"`
}

// KlineResponse is the body of /api/token-kline.
type KlineResponse struct {
	Success bool `json:"success"`
	core.KlineSeries
}

// OverviewResponse is the body of /api/token-overview.
type OverviewResponse struct {
	Success bool `json:"success"`
	core.Overview
}

// PacingEntry is one category row of /api/pacing.
type PacingEntry struct {
	Category      string     `json:"category"`
	MinDelayMS    int64      `json:"min_delay_ms"`
	Count         int        `json:"count"`
	LastRequestAt *time.Time `json:"last_request_at,omitempty"`
}

// PacingResponse is the body of /api/pacing.
type PacingResponse struct {
	Success    bool          `json:"success"`
	Categories []PacingEntry `json:"categories"`
}

// SearchTokens handles GET /api/search-tokens?keyword=&chain=.
func (h *TokenHandlers) SearchTokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	keyword := strings.TrimSpace(query.Get("keyword"))
	chain := strings.TrimSpace(query.Get("chain"))
	if keyword == "" {
		respondFailure(w, r, apperrors.NewInvalidInputError(missingKeyword), Failure{Error: missingKeyword})
		return
	}

	result, err := h.Service.SearchTokens(r.Context(), keyword, chain)
	if err != nil {
		envelope, failure := searchFailure(r.Context(), err)
		respondFailure(w, r, envelope, failure)
		return
	}

	tokens := result.Tokens
	if tokens == nil {
		tokens = []core.TokenSummary{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{
		Success: true,
		Tokens:  tokens,
		Count:   len(tokens),
		Message: result.Message,
		Keyword: result.Keyword,
		Chain:   result.Chain,
	})
}

// TokenDetails handles GET /api/token-details?address=&chain=.
func (h *TokenHandlers) TokenDetails(w http.ResponseWriter, r *http.Request) {
	ref, ok := tokenRef(w, r)
	if !ok {
		return
	}

	details, err := h.Service.TokenDetails(r.Context(), ref)
	if err != nil {
		envelope, failure := detailsFailure(r.Context(), err)
		respondFailure(w, r, envelope, failure)
		return
	}
	writeJSON(w, http.StatusOK, DetailsResponse{Success: true, TokenDetails: details})
}

// Holders handles GET /api/token-holders. Upstream failures degrade to an
// empty list.
func (h *TokenHandlers) Holders(w http.ResponseWriter, r *http.Request) {
	ref, ok := tokenRef(w, r)
	if !ok {
		return
	}

	holders, _ := h.Service.Holders(r.Context(), ref)
	if holders == nil {
		holders = []core.HolderEntry{}
	}
	writeJSON(w, http.StatusOK, HoldersResponse{Success: true, Holders: holders})
}

// Transactions handles GET /api/token-transactions?address=&chain=&limit=&to_time=.
func (h *TokenHandlers) Transactions(w http.ResponseWriter, r *http.Request) {
	ref, ok := tokenRef(w, r)
	if !ok {
		return
	}
	query := r.URL.Query()
	limit := intParam(query.Get("limit"), engine.DefaultTransactionsLimit, MaxTransactionsLimit)

	txs, _ := h.Service.Transactions(r.Context(), ref, limit, query.Get("to_time"))
	if txs == nil {
		txs = []core.TransactionEntry{}
	}
	writeJSON(w, http.StatusOK, TransactionsResponse{Success: true, Transactions: txs})
}

// Risk handles GET /api/token-risk. Upstream failures degrade to {}.
func (h *TokenHandlers) Risk(w http.ResponseWriter, r *http.Request) {
	ref, ok := tokenRef(w, r)
	if !ok {
		return
	}

	report, _ := h.Service.Risk(r.Context(), ref)
	if report == nil {
		report = core.RiskReport{}
	}
	writeJSON(w, http.StatusOK, RiskResponse{Success: true, Risk: report})
}

// Kline handles GET /api/token-kline?address=&chain=&interval=&limit=.
func (h *TokenHandlers) Kline(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	ref := core.TokenRef{
		Address: strings.TrimSpace(query.Get("address")),
		Chain:   strings.TrimSpace(query.Get("chain")),
	}
	if ref.Address == "" || ref.Chain == "" {
		envelope := apperrors.NewInvalidInputError(missingAddressChain)
		respondFailure(w, r, envelope, map[string]string{"error": missingAddressChain})
		return
	}

	interval := strings.TrimSpace(query.Get("interval"))
	if interval == "" {
		interval = engine.DefaultKlineInterval
	}
	limit := intParam(query.Get("limit"), engine.DefaultKlineLimit, math.MaxInt)
	if limit > MaxKlineLimit {
		msg := fmt.Sprintf("limit must not exceed %d", MaxKlineLimit)
		respondFailure(w, r, apperrors.NewInvalidInputError(msg), map[string]string{"error": msg})
		return
	}

	series, err := h.Service.Kline(r.Context(), ref, interval, limit)
	if err != nil {
		envelope, failure := detailsFailure(r.Context(), err)
		respondFailure(w, r, envelope, failure)
		return
	}
	if series.Points == nil {
		series.Points = []core.KlinePoint{}
	}
	if series.IsMock {
		metrics.RecordMockKlines(interval)
	}
	writeJSON(w, http.StatusOK, KlineResponse{Success: true, KlineSeries: series})
}

// Overview handles GET /api/token-overview?address=&chain=&limit=.
func (h *TokenHandlers) Overview(w http.ResponseWriter, r *http.Request) {
	ref, ok := tokenRef(w, r)
	if !ok {
		return
	}
	limit := intParam(r.URL.Query().Get("limit"), engine.DefaultTransactionsLimit, MaxTransactionsLimit)

	overview, err := h.Service.Overview(r.Context(), ref, limit)
	if err != nil {
		envelope, failure := detailsFailure(r.Context(), err)
		respondFailure(w, r, envelope, failure)
		return
	}
	writeJSON(w, http.StatusOK, OverviewResponse{Success: true, Overview: overview})
}

// Pacing handles GET /api/pacing.
func (h *TokenHandlers) Pacing(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Service.PacingSnapshot()
	entries := make([]PacingEntry, 0, len(snapshot))
	for _, s := range snapshot {
		entry := PacingEntry{
			Category:   string(s.Category),
			MinDelayMS: s.MinDelay.Milliseconds(),
			Count:      s.Count,
		}
		if !s.LastRequestAt.IsZero() {
			last := s.LastRequestAt
			entry.LastRequestAt = &last
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, PacingResponse{Success: true, Categories: entries})
}

func tokenRef(w http.ResponseWriter, r *http.Request) (core.TokenRef, bool) {
	query := r.URL.Query()
	ref := core.TokenRef{
		Address: strings.TrimSpace(query.Get("address")),
		Chain:   strings.TrimSpace(query.Get("chain")),
	}
	if ref.Address == "" || ref.Chain == "" {
		respondFailure(w, r, apperrors.NewInvalidInputError(missingAddressChain), Failure{Error: missingAddressChain})
		return ref, false
	}
	return ref, true
}

// intParam parses a positive integer query value, falling back to def and
// clamping to max.
func intParam(raw string, def, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}

func respondFailure(w http.ResponseWriter, r *http.Request, envelope *fulmenerrors.ErrorEnvelope, body any) {
	apperrors.RespondWithBody(w, r, envelope, body)
}

// searchFailure maps a search error to its status and body. Upstream 403, 429
// and 400 answers are forwarded with their own messages.
func searchFailure(ctx context.Context, err error) (*fulmenerrors.ErrorEnvelope, any) {
	if errors.Is(err, engine.ErrInvalidInput) {
		return apperrors.NewInvalidInputError(missingKeyword), Failure{Error: missingKeyword}
	}
	if errors.Is(err, engine.ErrMissingAPIKey) {
		return apperrors.NewConfigInvalidError("API key not configured"), Failure{
			Error:   "API key not configured",
			Message: "Configure a valid upstream API key",
		}
	}

	var status *upstream.StatusError
	if errors.As(err, &status) {
		switch status.Code {
		case http.StatusForbidden:
			return apperrors.NewForbiddenError("API authentication failed"), Failure{
				Error:   "API authentication failed",
				Message: "Upstream rejected the API key",
			}
		case http.StatusTooManyRequests:
			return apperrors.NewRateLimitedError("API rate limit exceeded"), Failure{
				Error:   "API rate limit exceeded",
				Message: "Too many upstream requests, try again later",
			}
		case http.StatusBadRequest:
			return apperrors.NewInvalidInputError("Invalid request parameters"), Failure{
				Error:   "Invalid request parameters",
				Message: "Check the search keyword",
			}
		}
	}

	failure := Failure{Error: "Failed to search tokens", Details: err.Error()}
	switch {
	case upstream.IsTimeout(err):
		failure.Message = "Search request timed out, try again later"
		return apperrors.WrapTimeout(ctx, err, failure.Error), failure
	case upstream.IsNetworkFailure(err):
		failure.Message = "Unable to reach the data source"
		return apperrors.WrapExternalService(ctx, err, failure.Error), failure
	default:
		failure.Message = "Unable to search tokens, try again later"
		return apperrors.WrapInternal(ctx, err, failure.Error), failure
	}
}

// detailsFailure maps a token lookup error to its status and body: 400 for
// bad input, 504 on timeout, 502 on other network failures, 500 otherwise.
func detailsFailure(ctx context.Context, err error) (*fulmenerrors.ErrorEnvelope, any) {
	if errors.Is(err, engine.ErrInvalidInput) {
		return apperrors.NewInvalidInputError(missingAddressChain), Failure{Error: missingAddressChain}
	}

	failure := Failure{Error: "Failed to fetch token details", Message: err.Error()}
	switch {
	case upstream.IsTimeout(err):
		return apperrors.WrapTimeout(ctx, err, failure.Error), failure
	case upstream.IsNetworkFailure(err):
		return apperrors.WrapExternalService(ctx, err, failure.Error), failure
	default:
		return apperrors.WrapInternal(ctx, err, failure.Error), failure
	}
}
