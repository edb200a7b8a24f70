package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/michalkw/traffic-status-service/internal/aggregate"
	"github.com/michalkw/traffic-status-service/internal/cache"
	"github.com/michalkw/traffic-status-service/internal/config"
	"github.com/michalkw/traffic-status-service/internal/forecast"
	"github.com/michalkw/traffic-status-service/internal/ingest"
	"github.com/michalkw/traffic-status-service/internal/mq"
	"github.com/michalkw/traffic-status-service/internal/ratelimit"
	"github.com/michalkw/traffic-status-service/internal/validator"
	"go.uber.org/zap"
)

const currentStatusWindow = 15 * time.Minute

// ActionLimiter decides whether a guarded action may proceed.
type ActionLimiter interface {
	Allow(ctx context.Context, identifier string, kind ratelimit.ActionKind) bool
}

// Handlers holds the HTTP handlers and their collaborators
type Handlers struct {
	gateway    *ingest.Gateway
	aggregator *aggregate.Aggregator
	forecaster *forecast.Forecaster
	validator  *validator.Validator
	limiter    ActionLimiter
	cache      cache.Cache
	publisher  ingest.IncidentPublisher
	cfg        *config.Config
	logger     *zap.Logger
	client     *http.Client
	now        func() time.Time
}

// NewHandlers creates the handler set
func NewHandlers(
	gateway *ingest.Gateway,
	aggregator *aggregate.Aggregator,
	forecaster *forecast.Forecaster,
	v *validator.Validator,
	limiter ActionLimiter,
	c cache.Cache,
	publisher ingest.IncidentPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		gateway:    gateway,
		aggregator: aggregator,
		forecaster: forecaster,
		validator:  v,
		limiter:    limiter,
		cache:      c,
		publisher:  publisher,
		cfg:        cfg,
		logger:     logger,
		client:     &http.Client{Timeout: cfg.Payments.Timeout},
		now:        time.Now,
	}
}

// Router builds the HTTP routing table
func (h *Handlers) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/reports", h.handleSubmitReport)
	mux.HandleFunc("POST /api/v1/incidents", h.handleSubmitIncident)
	mux.HandleFunc("POST /api/v1/visits", h.handleVisit)

	mux.HandleFunc("GET /api/v1/status", h.gateByIP(ratelimit.ActionDataProxyCall, h.handleCurrentStatus))
	mux.HandleFunc("GET /api/v1/history", h.gateByIP(ratelimit.ActionDataProxyCall, h.handleHistory))
	mux.HandleFunc("GET /api/v1/forecast", h.gateByIP(ratelimit.ActionDataProxyCall, h.handleForecast))
	mux.HandleFunc("GET /api/v1/commute", h.gateByIP(ratelimit.ActionDataProxyCall, h.handleCommute))

	mux.HandleFunc("POST /api/v1/notifications/test", h.gateByIP(ratelimit.ActionNotificationTrigger, h.handleNotificationTest))
	mux.HandleFunc("POST /api/v1/payment-sessions", h.gateByIP(ratelimit.ActionPaymentSession, h.handlePaymentSession))

	return logRequests(h.logger, mux)
}

type submitReportRequest struct {
	Street          string   `json:"street"`
	Status          string   `json:"status"`
	Direction       string   `json:"direction"`
	UserFingerprint string   `json:"userFingerprint"`
	Speed           *float64 `json:"speed,omitempty"`
	IsAutoSubmit    bool     `json:"isAutoSubmit,omitempty"`
}

func (h *Handlers) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": "malformed request body",
		})
		return
	}

	_, err := h.gateway.SubmitReport(r.Context(), ingest.ReportRequest{
		Street:      req.Street,
		Status:      req.Status,
		Direction:   req.Direction,
		Fingerprint: req.UserFingerprint,
		SpeedKmh:    req.Speed,
		AutoSubmit:  req.IsAutoSubmit,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Suppressed and rate-limited submissions get the same response as
	// stored ones so an abusive client cannot probe the limiter.
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type submitIncidentRequest struct {
	Street          string `json:"street"`
	IncidentType    string `json:"incidentType"`
	Direction       string `json:"direction"`
	UserFingerprint string `json:"userFingerprint"`
}

func (h *Handlers) handleSubmitIncident(w http.ResponseWriter, r *http.Request) {
	var req submitIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": "malformed request body",
		})
		return
	}

	_, err := h.gateway.SubmitIncident(r.Context(), ingest.IncidentRequest{
		Street:       req.Street,
		IncidentType: req.IncidentType,
		Direction:    req.Direction,
		Fingerprint:  req.UserFingerprint,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type visitRequest struct {
	UserFingerprint string `json:"userFingerprint"`
}

// handleVisit records a page visit for unique-visitor counting. The limiter
// collapses repeat visits inside the window; the response never reveals
// whether this one was counted.
func (h *Handlers) handleVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserFingerprint == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": "userFingerprint is required",
		})
		return
	}

	h.limiter.Allow(r.Context(), req.UserFingerprint, ratelimit.ActionPageVisit)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handlers) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	street, direction, err := h.validator.ValidateQuery(r.URL.Query().Get("street"), r.URL.Query().Get("direction"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	to := h.now()
	from := to.Add(-currentStatusWindow)
	status, err := h.aggregator.StatusInWindow(r.Context(), street, direction, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"street":      string(street),
		"direction":   string(direction),
		"status":      string(status),
		"windowStart": from.Format(time.RFC3339),
		"windowEnd":   to.Format(time.RFC3339),
	})
}

type timelineEntry struct {
	Time   string `json:"time"`
	Status string `json:"status"`
}

type historyResponse struct {
	Street    string          `json:"street"`
	Direction string          `json:"direction"`
	Span      string          `json:"span"`
	Buckets   []timelineEntry `json:"buckets"`
}

func (h *Handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	street, direction, err := h.validator.ValidateQuery(r.URL.Query().Get("street"), r.URL.Query().Get("direction"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	span := r.URL.Query().Get("span")
	if span == "" {
		span = "day"
	}

	now := h.now()
	year, month, day := now.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, now.Location())

	var start time.Time
	var count int
	switch span {
	case "day":
		start, count = midnight, 24
	case "week":
		start, count = midnight.AddDate(0, 0, -6), 7*24
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": fmt.Sprintf("unknown span %q, expected day or week", span),
		})
		return
	}

	cacheKey := fmt.Sprintf("history:%s:%s:%s", street, direction, span)
	if cached, ok, err := h.cache.Get(r.Context(), cacheKey); err != nil {
		h.logger.Warn("cache read failed", zap.Error(err), zap.String("key", cacheKey))
	} else if ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write(cached)
		return
	}

	buckets, err := h.aggregator.Timeline(r.Context(), street, direction, start, time.Hour, count)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := historyResponse{
		Street:    string(street),
		Direction: string(direction),
		Span:      span,
		Buckets:   make([]timelineEntry, 0, len(buckets)),
	}
	for _, b := range buckets {
		resp.Buckets = append(resp.Buckets, timelineEntry{
			Time:   b.Start.Format(time.RFC3339),
			Status: string(b.Status),
		})
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.cache.Set(r.Context(), cacheKey, encoded, h.cfg.Cache.TTL); err != nil {
		h.logger.Warn("cache write failed", zap.Error(err), zap.String("key", cacheKey))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(encoded)
}

type forecastResponse struct {
	Street    string          `json:"street"`
	Direction string          `json:"direction"`
	Horizon   string          `json:"horizon"`
	Entries   []timelineEntry `json:"entries"`
}

func (h *Handlers) handleForecast(w http.ResponseWriter, r *http.Request) {
	street, direction, err := h.validator.ValidateQuery(r.URL.Query().Get("street"), r.URL.Query().Get("direction"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	horizon := r.URL.Query().Get("horizon")
	if horizon == "" {
		horizon = "hour"
	}

	now := h.now()
	var start time.Time
	var interval time.Duration
	var count int
	switch horizon {
	case "hour":
		// Fine granularity over the next hour.
		start, interval, count = now, 5*time.Minute, 12
	case "extended":
		// Coarser buckets from one hour out, spanning ten hours.
		start, interval, count = now.Add(time.Hour), 20*time.Minute, 30
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": fmt.Sprintf("unknown horizon %q, expected hour or extended", horizon),
		})
		return
	}

	entries, err := h.forecaster.Forecast(r.Context(), street, direction, start, interval, count)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := forecastResponse{
		Street:    string(street),
		Direction: string(direction),
		Horizon:   horizon,
		Entries:   make([]timelineEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, timelineEntry{
			Time:   e.Time.Format(time.RFC3339),
			Status: string(e.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type commuteDay struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Status  string `json:"status"`
}

type commuteResponse struct {
	Street    string       `json:"street"`
	Direction string       `json:"direction"`
	At        string       `json:"at"`
	Days      []commuteDay `json:"days"`
}

// handleCommute compares a fixed departure time across the trailing week,
// one entry per weekday.
func (h *Handlers) handleCommute(w http.ResponseWriter, r *http.Request) {
	street, direction, err := h.validator.ValidateQuery(r.URL.Query().Get("street"), r.URL.Query().Get("direction"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	at := r.URL.Query().Get("at")
	clock, err := time.Parse("15:04", at)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"message": "at must be a HH:MM time of day",
		})
		return
	}

	now := h.now()
	year, month, day := now.Date()
	ref := time.Date(year, month, day, clock.Hour(), clock.Minute(), 0, 0, now.Location())

	entries, err := h.forecaster.WeekdayStatuses(r.Context(), street, direction, ref)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := commuteResponse{
		Street:    string(street),
		Direction: string(direction),
		At:        at,
		Days:      make([]commuteDay, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Days = append(resp.Days, commuteDay{
			Date:    e.Time.Format("2006-01-02"),
			Weekday: e.Time.Weekday().String(),
			Status:  string(e.Status),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleNotificationTest publishes a synthetic incident event so operators
// can verify the delivery pipeline end to end.
func (h *Handlers) handleNotificationTest(w http.ResponseWriter, r *http.Request) {
	event := mq.IncidentEvent{
		ReportID:     "test",
		Street:       "borowska",
		Direction:    "to_center",
		IncidentType: "roadworks",
		ReportedAt:   h.now().Format(time.RFC3339),
	}
	if err := h.publisher.PublishIncidentEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to publish test notification", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "failed to queue test notification",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handlePaymentSession forwards session creation to the external payments
// collaborator. Upstream failure surfaces to the caller; no retry here,
// recovery belongs to the client's next attempt.
func (h *Handlers) handlePaymentSession(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Payments.SessionURL == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "upstream",
			"message": "payments are not configured",
		})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.cfg.Payments.SessionURL, r.Body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("payment session upstream call failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "upstream",
			"message": "payment provider is unavailable",
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.logger.Error("payment session upstream returned error",
			zap.Int("status", resp.StatusCode))
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error":   "upstream",
			"message": fmt.Sprintf("payment provider returned status %d", resp.StatusCode),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	io.Copy(w, resp.Body)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	var validationErr *validator.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "validation",
			"field":   validationErr.Field,
			"message": validationErr.Message,
		})
	case errors.Is(err, ingest.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":   "rate_limit",
			"message": "submission limit reached, please try again later",
		})
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "internal",
			"message": "internal server error",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
