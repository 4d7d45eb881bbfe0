package handlers

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"packshop/internal/middleware"
	"packshop/internal/models"
	"packshop/internal/services"
)

// Same text whether or not the account exists.
const forgotPasswordMessage = "If an account exists for this email, a reset link has been sent"

type PasswordHandler struct {
	resets *services.PasswordResetService
	v      *validator.Validate
	errs   errorResponder
}

func NewPasswordHandler(resets *services.PasswordResetService, log *zap.Logger, verboseErrors bool) *PasswordHandler {
	return &PasswordHandler{
		resets: resets,
		v:      newValidator(),
		errs:   errorResponder{log: log, verbose: verboseErrors},
	}
}

// @Tags Password
// @Summary Request a password reset email
// @Accept json
// @Produce json
// @Param body body models.ForgotPasswordRequest true "Email"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/password/forgot [post]
func (h *PasswordHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ForgotPasswordRequest
	if !decodeAndValidate(w, r, h.v, &req) {
		return
	}

	res, err := h.resets.RequestReset(r.Context(), req.Email)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, res, forgotPasswordMessage)
}

// @Tags Password
// @Summary Reset the password with a reset token
// @Accept json
// @Produce json
// @Param body body models.ResetPasswordRequest true "Token and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/password/reset [post]
func (h *PasswordHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req models.ResetPasswordRequest
	if !decodeAndValidate(w, r, h.v, &req) {
		return
	}

	if err := h.resets.ConfirmReset(r.Context(), req.Token, req.NewPassword); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, map[string]bool{"ok": true}, "Password reset successful")
}

// @Tags Password
// @Summary Change the password of the current user
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body models.ChangePasswordRequest true "Current and new password"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /api/password/change [post]
func (h *PasswordHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSONErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	var req models.ChangePasswordRequest
	if !decodeAndValidate(w, r, h.v, &req) {
		return
	}

	if err := h.resets.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSONData(w, http.StatusOK, map[string]bool{"ok": true}, "Password changed")
}
