package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
)

type HealthHandler struct {
	db      *sqlx.DB
	appName string
}

func NewHealthHandler(db *sqlx.DB, appName string) *HealthHandler {
	return &HealthHandler{db: db, appName: appName}
}

// @Tags System
// @Summary API welcome
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the " + h.appName + " API",
		"docs":    "/swagger/index.html",
	})
}

// @Tags System
// @Summary Health check
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := map[string]any{"status": "ok", "db": map[string]any{"status": "ok"}}
	if h.db == nil || h.db.PingContext(ctx) != nil {
		status = http.StatusServiceUnavailable
		body = map[string]any{"status": "degraded", "db": map[string]any{"status": "down"}}
	}
	body["time"] = time.Now().UTC().Format(time.RFC3339)
	writeJSON(w, status, body)
}

// NotFound answers unknown routes with JSON.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSONErrorResponse(w, http.StatusNotFound, "not_found", "Route not found")
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSONErrorResponse(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}
