package auth

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/cityweather-go/apperror"
	"github.com/user/cityweather-go/web"
)

// SessionTokens issues the bearer tokens delivered as session cookies.
// Satisfied by TokenIssuer.
type SessionTokens interface {
	Issue(user *User) (string, time.Time, error)
	TTL() time.Duration
}

// Handlers serves the registration, login, and logout routes. Form flows
// re-render the page with an inline message on failure; they never fall
// through to a generic error page.
type Handlers struct {
	service *Service
	tokens  SessionTokens
	pages   *web.Pages
	log     *zap.Logger
}

// NewHandlers creates the auth handler set.
func NewHandlers(service *Service, tokens SessionTokens, pages *web.Pages, log *zap.Logger) *Handlers {
	return &Handlers{service: service, tokens: tokens, pages: pages, log: log}
}

// HandleRegisterPage serves the registration form.
func (h *Handlers) HandleRegisterPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Render(w, http.StatusOK, "register.html", map[string]any{})
	}
}

// HandleRegister processes a registration form submission. On success the
// user is logged in immediately: a session token is issued and set as the
// cookie before redirecting home.
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.renderRegister(w, "invalid form submission", "", "")
			return
		}

		email := strings.TrimSpace(r.PostFormValue("email"))
		username := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")
		if email == "" || username == "" || password == "" {
			h.renderRegister(w, "email, username, and password are required", email, username)
			return
		}

		user, err := h.service.Register(r.Context(), email, username, password)
		if err != nil {
			if appErr, ok := apperror.FromError(err); ok &&
				(apperror.IsConflict(err) || apperror.IsValidation(err)) {
				h.renderRegister(w, appErr.Message, email, username)
				return
			}
			h.log.Error("registration failed", zap.Error(err))
			h.renderRegister(w, "something went wrong, please try again", email, username)
			return
		}

		h.startSession(w, r, user, func(message string) {
			h.renderRegister(w, message, email, username)
		})
	}
}

// HandleLoginPage serves the login form.
func (h *Handlers) HandleLoginPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.pages.Render(w, http.StatusOK, "login.html", map[string]any{})
	}
}

// HandleLogin processes a login form submission. The failure message is the
// same whether the email is unknown or the password is wrong.
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			h.renderLogin(w, "invalid form submission", "")
			return
		}

		email := strings.TrimSpace(r.PostFormValue("email"))
		password := r.PostFormValue("password")
		if email == "" || password == "" {
			h.renderLogin(w, "email and password are required", email)
			return
		}

		user, err := h.service.Authenticate(r.Context(), email, password)
		if err != nil {
			if appErr, ok := apperror.FromError(err); ok && apperror.IsAuth(err) {
				h.renderLogin(w, appErr.Message, email)
				return
			}
			h.log.Error("login failed", zap.Error(err))
			h.renderLogin(w, "something went wrong, please try again", email)
			return
		}

		h.startSession(w, r, user, func(message string) {
			h.renderLogin(w, message, email)
		})
	}
}

// HandleLogout clears the session cookie and redirects home. There is
// nothing to revoke server-side; the client simply stops holding the token.
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clearSessionCookie(w)
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// startSession issues a token for the user, sets the cookie, and redirects
// to the home page. On issuance failure renderFailure re-renders the form the
// user actually submitted.
func (h *Handlers) startSession(w http.ResponseWriter, r *http.Request, user *User, renderFailure func(message string)) {
	token, _, err := h.tokens.Issue(user)
	if err != nil {
		h.log.Error("failed to issue session token", zap.Error(err))
		renderFailure("something went wrong, please try again")
		return
	}
	SetSessionCookie(w, token, h.tokens.TTL())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handlers) renderRegister(w http.ResponseWriter, message, email, username string) {
	h.pages.Render(w, http.StatusOK, "register.html", map[string]any{
		"Error":    message,
		"Email":    email,
		"Username": username,
	})
}

func (h *Handlers) renderLogin(w http.ResponseWriter, message, email string) {
	h.pages.Render(w, http.StatusOK, "login.html", map[string]any{
		"Error": message,
		"Email": email,
	})
}

// WriteJSON serializes data to the response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// WriteError converts any error into the standard JSON error response.
// Errors that are not AppErrors are reported as opaque internal failures.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}
	WriteJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
