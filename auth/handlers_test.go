package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/cityweather-go/web"
)

// stubTokens replaces the real issuer so token failures can be forced.
type stubTokens struct {
	IssueFunc func(user *User) (string, time.Time, error)
}

func (s *stubTokens) Issue(user *User) (string, time.Time, error) {
	return s.IssueFunc(user)
}

func (s *stubTokens) TTL() time.Duration { return 30 * time.Minute }

func newFormHandlers(t *testing.T, store UserStore, tokens SessionTokens) *Handlers {
	t.Helper()
	pages, err := web.NewPages()
	require.NoError(t, err)
	return NewHandlers(testService(store), tokens, pages, zap.NewNop())
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func registerForm() url.Values {
	return url.Values{
		"email":    {"a@x.com"},
		"username": {"a"},
		"password": {"secret1"},
	}
}

func sessionCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	return nil
}

func TestHandleRegister_SuccessStartsSession(t *testing.T) {
	store := &mockUserStore{
		CreateUserFunc: func(ctx context.Context, user *User) (*User, error) {
			user.ID = 1
			return user, nil
		},
	}
	tokens := &stubTokens{
		IssueFunc: func(user *User) (string, time.Time, error) {
			return "issued-token", time.Now().Add(30 * time.Minute), nil
		},
	}
	h := newFormHandlers(t, store, tokens)

	rec := httptest.NewRecorder()
	h.HandleRegister()(rec, postForm("/register", registerForm()))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	cookie := sessionCookieFrom(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "issued-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestHandleRegister_IssueFailureRerendersRegisterForm(t *testing.T) {
	store := &mockUserStore{
		CreateUserFunc: func(ctx context.Context, user *User) (*User, error) {
			user.ID = 1
			return user, nil
		},
	}
	tokens := &stubTokens{
		IssueFunc: func(user *User) (string, time.Time, error) {
			return "", time.Time{}, errors.New("signing failed")
		},
	}
	h := newFormHandlers(t, store, tokens)

	rec := httptest.NewRecorder()
	h.HandleRegister()(rec, postForm("/register", registerForm()))

	// The user stays on the registration form, with the submitted values
	// preserved and no session cookie set.
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/register"`)
	assert.NotContains(t, body, `action="/login"`)
	assert.Contains(t, body, "something went wrong")
	assert.Contains(t, body, `value="a@x.com"`)
	assert.Nil(t, sessionCookieFrom(rec))
}

func TestHandleLogin_IssueFailureRerendersLoginForm(t *testing.T) {
	user := registeredUser(t)
	store := &mockUserStore{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*User, error) {
			return user, nil
		},
	}
	tokens := &stubTokens{
		IssueFunc: func(user *User) (string, time.Time, error) {
			return "", time.Time{}, errors.New("signing failed")
		},
	}
	h := newFormHandlers(t, store, tokens)

	form := url.Values{"email": {"a@x.com"}, "password": {"secret1"}}
	rec := httptest.NewRecorder()
	h.HandleLogin()(rec, postForm("/login", form))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `action="/login"`)
	assert.Contains(t, body, "something went wrong")
	assert.Nil(t, sessionCookieFrom(rec))
}

func TestHandleLogin_BadCredentialsRerenderWithMessage(t *testing.T) {
	store := &mockUserStore{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*User, error) {
			return nil, ErrNoSuchUser
		},
	}
	tokens := &stubTokens{
		IssueFunc: func(user *User) (string, time.Time, error) {
			t.Fatal("no token may be issued for bad credentials")
			return "", time.Time{}, nil
		},
	}
	h := newFormHandlers(t, store, tokens)

	form := url.Values{"email": {"nobody@x.com"}, "password": {"secret1"}}
	rec := httptest.NewRecorder()
	h.HandleLogin()(rec, postForm("/login", form))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email or password")
	assert.Nil(t, sessionCookieFrom(rec))
}
