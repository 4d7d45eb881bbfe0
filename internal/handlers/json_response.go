package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
	"packshop/internal/services"
)

type envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
	Reasons []string          `json:"reasons,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writeJSONMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: true, Message: message})
}

func writeJSONErrorResponse(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, envelope{Success: false, Error: code, Message: message})
}

func writeValidationError(w http.ResponseWriter, details map[string]string) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Error:   "validation_error",
		Message: "Invalid request data",
		Details: details,
	})
}

// errorResponder writes service errors. Internal causes are only included
// when verbose is set, i.e. outside production.
type errorResponder struct {
	log     *zap.Logger
	verbose bool
}

func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindPolicyViolation:
		return http.StatusBadRequest
	case services.KindInvalidCredentials, services.KindUnauthorized:
		return http.StatusUnauthorized
	case services.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (e errorResponder) write(w http.ResponseWriter, r *http.Request, err error) {
	var svcErr *services.Error
	if !asServiceError(err, &svcErr) {
		e.log.Error("Unhandled error", zap.String("path", r.URL.Path), zap.Error(err))
		body := envelope{Success: false, Error: "internal_error", Message: "Internal server error"}
		if e.verbose {
			body.Message = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, body)
		return
	}

	status := statusForKind(svcErr.Kind)
	body := envelope{Success: false, Error: svcErr.Code, Message: svcErr.Message, Reasons: svcErr.Reasons}
	if status >= http.StatusInternalServerError {
		e.log.Error("Request failed", zap.String("path", r.URL.Path), zap.String("code", svcErr.Code), zap.Error(svcErr.Err))
		if e.verbose && svcErr.Err != nil {
			body.Message = svcErr.Message + ": " + svcErr.Err.Error()
		}
	}
	writeJSON(w, status, body)
}
