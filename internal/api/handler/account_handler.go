package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/veriflow/accounts-api/internal/api/cookies"
	"github.com/veriflow/accounts-api/internal/api/metrics"
	"github.com/veriflow/accounts-api/internal/core/domain"
	"github.com/veriflow/accounts-api/internal/core/ports"
)

type AccountHandler struct {
	service  ports.AccountService
	sessions ports.SessionIssuer
	cookies  cookies.Writer
}

func NewAccountHandler(service ports.AccountService, sessions ports.SessionIssuer, cw cookies.Writer) *AccountHandler {
	return &AccountHandler{service: service, sessions: sessions, cookies: cw}
}

// SignUp registers a new account and issues a signup verification code.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signUpRequest  true  "Registration details"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/signup [post]
func (h *AccountHandler) SignUp(c echo.Context) error {
	var req signUpRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.SignUp(c.Request().Context(), ports.SignUpInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}); err != nil {
		return err
	}

	metrics.SignupsTotal.Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: pendingVerifyMessage})
}

// SignIn authenticates with email and password and sets the session cookie.
// An unverified account gets a 403 with a redirect hint and a fresh code
// instead of a session.
//
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signInRequest  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /auth/signin [post]
func (h *AccountHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.service.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			metrics.SigninsTotal.WithLabelValues("invalid_credentials").Inc()
		case errors.Is(err, domain.ErrUnverified):
			metrics.SigninsTotal.WithLabelValues("unverified").Inc()
		default:
			metrics.SigninsTotal.WithLabelValues("error").Inc()
		}
		return err
	}

	metrics.SigninsTotal.WithLabelValues("success").Inc()
	h.cookies.Set(c, token)
	return c.JSON(http.StatusOK, sessionResponse{User: toAccountResponse(account)})
}

// Verify consumes a signup code, marks the email verified, and sets the
// session cookie. Re-verifying an already verified account succeeds without
// a state change.
//
// @Summary      Verify email with a signup code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Email and code"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/verify [post]
func (h *AccountHandler) Verify(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.service.VerifySignup(c.Request().Context(), req.Email, req.OTP)
	if err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			metrics.OTPVerificationsTotal.WithLabelValues(string(domain.PurposeSignup), "invalid").Inc()
		}
		return err
	}

	metrics.OTPVerificationsTotal.WithLabelValues(string(domain.PurposeSignup), "success").Inc()
	h.cookies.Set(c, token)
	return c.JSON(http.StatusOK, sessionResponse{User: toAccountResponse(account)})
}

// ResendOTP re-issues a signup code. The response is identical for unknown
// addresses and already-verified accounts.
//
// @Summary      Resend the signup code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/otp/resend [post]
func (h *AccountHandler) ResendOTP(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.ResendOTP(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: genericOTPSentMessage})
}

// ForgotPassword issues a password-reset code with the same
// enumeration-safe contract as ResendOTP.
//
// @Summary      Request a password-reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      emailRequest  true  "Email"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Router       /auth/password/forgot [post]
func (h *AccountHandler) ForgotPassword(c echo.Context) error {
	var req emailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: genericOTPSentMessage})
}

// VerifyReset confirms a password-reset code without consuming it, so the
// client can proceed to the password step (and retry it on failure).
//
// @Summary      Confirm a password-reset code
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyRequest  true  "Email and code"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/password/verify [post]
func (h *AccountHandler) VerifyReset(c echo.Context) error {
	var req verifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.service.VerifyReset(c.Request().Context(), req.Email, req.OTP); err != nil {
		if errors.Is(err, domain.ErrOTPInvalid) {
			metrics.OTPVerificationsTotal.WithLabelValues(string(domain.PurposePasswordReset), "invalid").Inc()
		}
		return err
	}

	metrics.OTPVerificationsTotal.WithLabelValues(string(domain.PurposePasswordReset), "success").Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: proceedToPasswordReset})
}

// ResetPassword stores the new credential, clears the challenge, and sets
// the session cookie.
//
// @Summary      Complete a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Email and new password"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /auth/password/reset [post]
func (h *AccountHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.service.ResetPassword(c.Request().Context(), req.Email, req.NewPassword)
	if err != nil {
		return err
	}

	h.cookies.Set(c, token)
	return c.JSON(http.StatusOK, sessionResponse{User: toAccountResponse(account)})
}

// Me is the session probe. A missing cookie is not an error: the response
// is a null user. Any invalid token, or a token pointing at an account that
// no longer exists, clears the cookie and returns a null user.
//
// @Summary      Return the current session's account
// @Tags         auth
// @Produce      json
// @Success      200  {object}  probeResponse
// @Router       /auth/me [get]
func (h *AccountHandler) Me(c echo.Context) error {
	token := cookies.Read(c)
	if token == "" {
		return c.JSON(http.StatusOK, probeResponse{User: nil})
	}

	session, err := h.sessions.Verify(token)
	if err != nil {
		h.cookies.Clear(c)
		return c.JSON(http.StatusOK, probeResponse{User: nil})
	}

	account, err := h.service.Profile(c.Request().Context(), session.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			h.cookies.Clear(c)
			return c.JSON(http.StatusOK, probeResponse{User: nil})
		}
		return err
	}

	resp := toAccountResponse(account)
	return c.JSON(http.StatusOK, probeResponse{User: &resp})
}

// DeleteAccount removes the account identified by the caller's session.
// The cookie is revoked on every response path so no client keeps a token
// pointing at a deleted account.
//
// @Summary      Delete the current account
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /auth/account [delete]
func (h *AccountHandler) DeleteAccount(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		h.cookies.Clear(c)
		return err
	}

	// Revoke up front: success and not-found both end the session.
	h.cookies.Clear(c)

	if err := h.service.DeleteAccount(c.Request().Context(), session.AccountID); err != nil {
		return err
	}

	metrics.DeletionsTotal.Inc()
	return c.JSON(http.StatusOK, messageResponse{Message: accountDeletedMessage})
}

// ListAccounts returns every account, admin only.
//
// @Summary      List all accounts
// @Tags         admin
// @Produce      json
// @Success      200  {object}  accountListResponse
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /admin/accounts [get]
func (h *AccountHandler) ListAccounts(c echo.Context) error {
	accounts, err := h.service.ListAccounts(c.Request().Context())
	if err != nil {
		return err
	}

	resp := accountListResponse{Accounts: make([]accountResponse, 0, len(accounts)), Total: len(accounts)}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, toAccountResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}
