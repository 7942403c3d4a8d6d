package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	appctx "github.com/welldanyogia/portfolio-contact/internal/context"
	"github.com/welldanyogia/portfolio-contact/internal/logger"
	"github.com/welldanyogia/portfolio-contact/internal/middleware"
)

// DefaultMaxBodyBytes leaves room for a base64 encoded 5 MiB attachment
const DefaultMaxBodyBytes = 8 << 20

// APIResponse represents the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIError represents the error detail in API response
type APIError struct {
	Code               string              `json:"code"`
	Message            string              `json:"message"`
	Details            map[string][]string `json:"details,omitempty"`
	ReferenceID        string              `json:"referenceId,omitempty"`
	AlternativeContact *AlternativeContact `json:"alternativeContact,omitempty"`
	// Debug carries the raw error text outside production
	Debug string `json:"debug,omitempty"`
}

// Status is the body of GET /api/contact. It only reports whether the
// external settings are present, never their values.
type Status struct {
	Status                   string `json:"status"`
	EmailProvider            string `json:"emailProvider"`
	EmailConfigured          bool   `json:"emailConfigured"`
	RecipientConfigured      bool   `json:"recipientConfigured"`
	SenderConfigured         bool   `json:"senderConfigured"`
	AlternativeContactConfig bool   `json:"alternativeContactConfigured"`
	RateLimitBackend         string `json:"rateLimitBackend"`
}

// HandlerConfig holds HTTP-level settings
type HandlerConfig struct {
	MaxBodyBytes int64
	// Production hides raw error text from clients
	Production bool
	Status     Status
}

// Handler handles HTTP requests for the contact endpoint
type Handler struct {
	service *Service
	cfg     HandlerConfig
	logger  *slog.Logger
}

// NewHandler creates a new Handler instance
func NewHandler(service *Service, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

// Submit handles POST /api/contact
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithCorrelationID(r.Context(), h.logger).Error("Panic while handling contact submission", slog.Any("panic", rec))
			h.writeError(w, http.StatusInternalServerError, &APIError{
				Code:    CodeInternalError,
				Message: "An unexpected error occurred",
				Debug:   h.debug(fmt.Errorf("panic: %v", rec)),
			})
		}
	}()

	ip, ok := appctx.ExtractClientIP(r.Context())
	if !ok {
		ip = appctx.ClientIP(r)
	}

	decision, err := h.service.Admit(r.Context(), ip)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	middleware.SetRateLimitHeaders(w, decision.Limit, decision.Remaining, decision.ResetAt)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, &APIError{
			Code:    CodeInvalidJSON,
			Message: "Invalid request body",
			Debug:   h.debug(err),
		})
		return
	}

	result, err := h.service.Process(r.Context(), ip, decision, req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, result)
}

// Status handles GET /api/contact
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.cfg.Status
	status.Status = "ok"
	if !status.EmailConfigured || !status.RecipientConfigured || !status.SenderConfigured {
		status.Status = "misconfigured"
	}
	h.writeSuccess(w, http.StatusOK, status)
}

// handleServiceError maps service errors to HTTP responses
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rateErr     *RateLimitError
		validErr    *ValidationError
		spamErr     *SpamError
		deliveryErr *DeliveryError
	)

	switch {
	case errors.As(err, &rateErr):
		d := rateErr.Decision
		middleware.WriteRateLimitError(w, d.Limit, d.Remaining, d.ResetAt)
	case errors.As(err, &validErr):
		h.writeError(w, http.StatusBadRequest, &APIError{
			Code:    validErr.Code,
			Message: validErr.Message,
			Details: fieldDetails(validErr.Fields),
		})
	case errors.As(err, &spamErr):
		h.writeError(w, http.StatusBadRequest, &APIError{
			Code:               CodeSpamDetected,
			Message:            "Your message was flagged by our spam filter. Please use one of the alternative contact options and quote the reference.",
			ReferenceID:        spamErr.ReferenceID,
			AlternativeContact: spamErr.Alternative,
			Debug:              h.debug(errors.New(spamErr.Reason)),
		})
	case errors.As(err, &deliveryErr):
		h.writeError(w, http.StatusInternalServerError, &APIError{
			Code:    CodeNotificationFailed,
			Message: "Your message could not be delivered. Please try again later or use an alternative contact option.",
			Debug:   h.debug(deliveryErr),
		})
	default:
		logger.WithCorrelationID(r.Context(), h.logger).Error("Unexpected contact error", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, &APIError{
			Code:    CodeInternalError,
			Message: "An unexpected error occurred",
			Debug:   h.debug(err),
		})
	}
}

func fieldDetails(fields map[string]string) map[string][]string {
	if len(fields) == 0 {
		return nil
	}
	details := make(map[string][]string, len(fields))
	for field, msg := range fields {
		details[field] = []string{msg}
	}
	return details
}

func (h *Handler) debug(err error) string {
	if h.cfg.Production || err == nil {
		return ""
	}
	return err.Error()
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, statusCode int, apiErr *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := APIResponse{
		Success:   false,
		Error:     apiErr,
		Timestamp: time.Now().UTC(),
	}

	json.NewEncoder(w).Encode(response)
}
