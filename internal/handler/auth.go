package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hetaoshu/hetaoshu-web/internal/api"
	internal_errors "github.com/hetaoshu/hetaoshu-web/internal/errors"
	"github.com/hetaoshu/hetaoshu-web/internal/logger"
	"github.com/hetaoshu/hetaoshu-web/internal/middleware"
	"github.com/hetaoshu/hetaoshu-web/internal/validation"
)

const (
	loginPath       = "/login"
	sendCodePath    = "/send-code"
	setPasswordPath = "/set-password"
)

func (h *Handler) LoginGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "login.html", nil)
}

func (h *Handler) LoginPostHandler(w http.ResponseWriter, r *http.Request) {
	studentID := strings.TrimSpace(r.FormValue("student_id"))
	password := r.FormValue("password")

	if err := validation.Required(studentID, password); err != nil {
		h.setFlash(w, middleware.FlashStudentID, studentID)
		h.redirectWithFlash(w, r, loginPath, middleware.FlashError, err.Error())
		return
	}

	var resp api.AuthResponse
	var err error
	if h.Public.EncryptPasswords {
		var encrypted string
		encrypted, err = h.Passwords.Encrypt(r.Context(), password)
		if err != nil {
			logger.FromRequest(r).Error("failed to encrypt password", "error", err)
			h.setFlash(w, middleware.FlashStudentID, studentID)
			h.redirectWithFlash(w, r, loginPath, middleware.FlashError, msgBackendUnavailable)
			return
		}
		resp, err = h.APIClient.Login(r.Context(), api.LoginRequest{StudentID: studentID, Password: encrypted})
		if rejected(err) {
			resp, err = h.retryLoginWithFreshKey(r, studentID, password, err)
		}
	} else {
		resp, err = h.APIClient.Login(r.Context(), api.LoginRequest{StudentID: studentID, Password: password})
	}
	if err != nil {
		logger.FromRequest(r).Info("login failed", "error", err)
		h.setFlash(w, middleware.FlashStudentID, studentID)
		h.redirectWithFlash(w, r, loginPath, middleware.FlashError, userMessage(err))
		return
	}

	if _, err := h.Sessions.Login(w, r, resp.Token, resp.User); err != nil {
		logger.FromRequest(r).Error("failed to start session", "error", err)
		h.redirectWithFlash(w, r, loginPath, middleware.FlashError, "Internal error: could not start session.")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// rejected reports an API refusal of the credentials themselves, which is also
// how a password encrypted with a rotated key comes back.
func rejected(err error) bool {
	var e *internal_errors.ErrorWithStatusCode
	return errors.As(err, &e) && (e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized)
}

// retryLoginWithFreshKey logs in once more when the public key turned out to
// have changed. Otherwise loginErr stands.
func (h *Handler) retryLoginWithFreshKey(r *http.Request, studentID, password string, loginErr error) (api.AuthResponse, error) {
	changed, err := h.Passwords.Refresh(r.Context())
	if err != nil {
		logger.FromRequest(r).Warn("failed to refresh public key", "error", err)
		return api.AuthResponse{}, loginErr
	}
	if !changed {
		return api.AuthResponse{}, loginErr
	}
	logger.FromRequest(r).Info("public key changed, retrying login")
	encrypted, err := h.Passwords.Encrypt(r.Context(), password)
	if err != nil {
		return api.AuthResponse{}, loginErr
	}
	return h.APIClient.Login(r.Context(), api.LoginRequest{StudentID: studentID, Password: encrypted})
}

func (h *Handler) SendCodeGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "send_code.html", nil)
}

// SendCodePostHandler asks the API to mail a verification code and moves on
// to the set-password form with the student id pre-filled.
func (h *Handler) SendCodePostHandler(w http.ResponseWriter, r *http.Request) {
	studentID := strings.TrimSpace(r.FormValue("student_id"))
	if err := validation.Required(studentID); err != nil {
		h.redirectWithFlash(w, r, sendCodePath, middleware.FlashError, err.Error())
		return
	}

	resp, err := h.APIClient.SendCode(r.Context(), api.SendCodeRequest{StudentID: studentID})
	if err != nil {
		logger.FromRequest(r).Info("send code failed", "error", err)
		h.setFlash(w, middleware.FlashStudentID, studentID)
		h.redirectWithFlash(w, r, sendCodePath, middleware.FlashError, userMessage(err))
		return
	}

	message := resp.Message
	if message == "" {
		message = "A verification code has been sent to your university email."
	}
	h.setFlash(w, middleware.FlashStudentID, studentID)
	h.redirectWithFlash(w, r, setPasswordPath, middleware.FlashSuccess, message)
}

func (h *Handler) SetPasswordGetHandler(w http.ResponseWriter, r *http.Request) {
	h.renderTemplate(w, r, "set_password.html", nil)
}

func (h *Handler) SetPasswordPostHandler(w http.ResponseWriter, r *http.Request) {
	req := api.SetPasswordRequest{
		StudentID:       strings.TrimSpace(r.FormValue("student_id")),
		Code:            strings.TrimSpace(r.FormValue("code")),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	fail := func(message string) {
		h.setFlash(w, middleware.FlashStudentID, req.StudentID)
		h.redirectWithFlash(w, r, setPasswordPath, middleware.FlashError, message)
	}

	if err := validation.Required(req.StudentID, req.Code, req.Password, req.ConfirmPassword); err != nil {
		fail(err.Error())
		return
	}
	if req.Password != req.ConfirmPassword {
		fail("Passwords do not match")
		return
	}

	resp, err := h.APIClient.SetPassword(r.Context(), req)
	if err != nil {
		logger.FromRequest(r).Info("set password failed", "error", err)
		fail(userMessage(err))
		return
	}

	if _, err := h.Sessions.Login(w, r, resp.Token, resp.User); err != nil {
		logger.FromRequest(r).Error("failed to start session", "error", err)
		h.redirectWithFlash(w, r, loginPath, middleware.FlashError, "Internal error: could not start session.")
		return
	}
	h.redirectWithFlash(w, r, "/", middleware.FlashSuccess, "Your password has been set")
}

// LogoutHandler tells the API to drop the token, then ends the local session
// whatever the API answered.
func (h *Handler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.APIClient.Logout(r.Context()); err != nil {
		logger.FromRequest(r).Info("API logout failed", "error", err)
	}
	if err := h.Sessions.Logout(w, r); err != nil {
		logger.FromRequest(r).Error("failed to end session", "error", err)
	}
	h.redirectWithFlash(w, r, loginPath, middleware.FlashSuccess, "You have been logged out")
}
