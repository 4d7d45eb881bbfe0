package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"packshop/internal/middleware"
	"packshop/internal/models"
	"packshop/internal/services"
)

type AuthHandler struct {
	accounts *services.AccountService
	v        *validator.Validate
	errs     errorResponder
}

func NewAuthHandler(accounts *services.AccountService, log *zap.Logger, verboseErrors bool) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		v:        newValidator(),
		errs:     errorResponder{log: log, verbose: verboseErrors},
	}
}

// @Tags Auth
// @Summary Register a new account
// @Accept json
// @Produce json
// @Param body body models.RegisterRequest true "Account"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, h.v, &req) {
		return
	}

	res, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusCreated, res, "Account created")
}

// @Tags Auth
// @Summary Log in
// @Accept json
// @Produce json
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, h.v, &req) {
		return
	}

	res, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, res, "Logged in")
}

// @Tags Auth
// @Summary Current user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.User
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}
	writeJSONData(w, http.StatusOK, map[string]any{"user": user}, "")
}
