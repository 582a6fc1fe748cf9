package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"admin-console/internal/apiclient"
	"admin-console/internal/authstore"
	"admin-console/internal/login"
	"admin-console/internal/models"
	"admin-console/internal/service"
	"admin-console/internal/util"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Response represents a standard API response
type Response struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Message  string      `json:"message,omitempty"`
	Redirect string      `json:"redirect,omitempty"`
}

// successResponse creates a successful response
func successResponse(data interface{}, message string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: message,
	}
}

// errorResponse creates an error response
func errorResponse(err error, message string) Response {
	return Response{
		Success: false,
		Error:   err.Error(),
		Message: message,
	}
}

// responder carries the JSON helpers every handler shares.
type responder struct {
	logger *zap.Logger
}

// respondWithJSON sends a JSON response
func (h responder) respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

// respondWithError sends an error response. The message shown to the
// admin is the one carried by err when there is one, else fallback.
func (h responder) respondWithError(w http.ResponseWriter, err error, fallback string) {
	h.respondWithErrorData(w, err, fallback, nil)
}

func (h responder) respondWithErrorData(w http.ResponseWriter, err error, fallback string, data interface{}) {
	h.respondWithErrorStatus(w, getStatusCode(err), err, fallback, data)
}

func (h responder) respondWithErrorStatus(w http.ResponseWriter, statusCode int, err error, fallback string, data interface{}) {
	message := userMessage(err, fallback)
	h.logger.Warn("HTTP error response",
		util.ErrorField(err),
		util.Int("status_code", statusCode),
		util.String("message", message),
	)
	resp := errorResponse(err, message)
	resp.Data = data
	h.respondWithJSON(w, statusCode, resp)
}

// decodeJSON reads a bounded JSON body.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

var errBadRequest = errors.New("invalid request body")

func userMessage(err error, fallback string) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return login.Message(err, fallback)
}

// getStatusCode determines the appropriate HTTP status code for an error
func getStatusCode(err error) int {
	var (
		apiErr *apiclient.APIError
		netErr *url.Error
	)
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, login.ErrInvalidEmail),
		errors.Is(err, service.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, authstore.ErrNotFound),
		errors.Is(err, apiclient.ErrNoToken),
		errors.Is(err, apiclient.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, login.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, login.ErrInvalidState), errors.Is(err, login.ErrResendLocked):
		return http.StatusConflict
	case errors.Is(err, service.ErrThrottled):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrAnalyticsDisabled), errors.Is(err, service.ErrSearchDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, apiclient.ErrMalformedResponse), errors.As(err, &netErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
