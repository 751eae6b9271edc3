package rest

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidleathers/outbound-pacing-backend/internal/domain/errors"
)

const maxBodySize = 1 << 20

// ResponseEnvelope wraps all API responses
type ResponseEnvelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *ErrorResponse `json:"error,omitempty"`
	Meta    ResponseMeta   `json:"meta"`
}

// ResponseMeta contains response metadata
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

// ErrorResponse provides detailed error information
type ErrorResponse struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
}

// BaseHandler provides the response writers shared by all handlers
type BaseHandler struct {
	validator  *validator.Validate
	apiVersion string
	logger     *zap.Logger
}

func NewBaseHandler(apiVersion string, logger *zap.Logger) *BaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseHandler{
		validator:  validator.New(validator.WithRequiredStructEnabled()),
		apiVersion: apiVersion,
		logger:     logger,
	}
}

// decode reads a JSON body into v and validates its struct tags.
func (h *BaseHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	if err := h.decodeJSON(w, r, v); err != nil {
		return err
	}
	return h.validate(v)
}

func (h *BaseHandler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case stderrors.As(err, &maxErr):
			return errors.NewValidationError("BODY_TOO_LARGE", fmt.Sprintf("request body exceeds %d bytes", maxBodySize))
		case stderrors.Is(err, io.EOF):
			return errors.NewValidationError("EMPTY_BODY", "request body is required")
		default:
			return errors.NewValidationError("INVALID_JSON", "invalid JSON: "+err.Error())
		}
	}
	return nil
}

func (h *BaseHandler) validate(v any) error {
	err := h.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError("VALIDATION_FAILED", err.Error())
	}
	fields := make(map[string]any, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			fields[fe.Field()] = fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
		} else {
			fields[fe.Field()] = "failed " + fe.Tag()
		}
	}
	return errors.NewValidationError("VALIDATION_FAILED", "request validation failed").WithDetails(fields)
}

func (h *BaseHandler) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.writeJSON(w, status, ResponseEnvelope{
		Success: true,
		Data:    data,
		Meta:    h.meta(r.Context()),
	})
}

// writeFailure writes an error envelope; data may carry a partial result.
func (h *BaseHandler) writeFailure(w http.ResponseWriter, r *http.Request, status int, data any, errResp *ErrorResponse) {
	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	h.writeJSON(w, status, ResponseEnvelope{
		Success: false,
		Data:    data,
		Error:   errResp,
		Meta:    h.meta(r.Context()),
	})
}

// handleError maps an error onto its HTTP status through the AppError
// taxonomy.
func (h *BaseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := toErrorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	h.writeFailure(w, r, status, nil, resp)
}

func toErrorResponse(err error) (int, *ErrorResponse) {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, &ErrorResponse{Code: "REQUEST_CANCELED", Message: "request was canceled", Retryable: true}
	}

	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError, &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	}

	resp := &ErrorResponse{Code: appErr.Code, Message: appErr.Message, Retryable: appErr.Retryable}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeBusiness, errors.ErrorTypeNotFound, errors.ErrorTypeConflict:
		resp.Fields = appErr.Details
	case errors.ErrorTypeInternal:
		resp.Message = "an internal error occurred"
	}
	return errors.GetStatusCode(err), resp
}

func (h *BaseHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *BaseHandler) meta(ctx context.Context) ResponseMeta {
	return ResponseMeta{
		RequestID: RequestIDFrom(ctx),
		Timestamp: time.Now().UTC(),
		Version:   h.apiVersion,
	}
}

// pathUUID parses a UUID path wildcard.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, errors.NewValidationError("INVALID_ID", fmt.Sprintf("%s must be a UUID", name))
	}
	return id, nil
}
