package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"taskmind-backend/internal/analytics"
)

var testSecret = []byte("test-secret")

type memoryUsers struct {
	mu      sync.Mutex
	byID    map[string]*User
	deleted []string
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: map[string]*User{}}
}

func (m *memoryUsers) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memoryUsers) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memoryUsers) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memoryUsers) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type recordingPurger struct {
	users []string
}

func (p *recordingPurger) DeleteForUser(_ context.Context, userID string) error {
	p.users = append(p.users, userID)
	return nil
}

func testHandlers(users UserStore) Handlers {
	return Handlers{Users: users, Secret: testSecret, TokenTTL: time.Hour, Log: zap.NewNop()}
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(testSecret, "u-1", time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	uid, err := ParseToken(testSecret, tok)
	if err != nil || uid != "u-1" {
		t.Fatalf("ParseToken = %q, %v", uid, err)
	}
	if _, err := ParseToken([]byte("other"), tok); err == nil {
		t.Fatalf("expected signature failure with a different secret")
	}
}

func TestParseTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Fatalf("HS512 token accepted")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := Claims{
		UserID: "u-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ParseToken(testSecret, tok); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestSignupLoginMe(t *testing.T) {
	users := newMemoryUsers()
	h := testHandlers(users)

	w := httptest.NewRecorder()
	h.SignupHandler()(w, httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"name":"Asha","email":" Asha@Example.com ","password":"pw"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d: %s", w.Code, w.Body)
	}
	var signup authResponse
	if err := json.Unmarshal(w.Body.Bytes(), &signup); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signup.User.Email != "asha@example.com" || signup.User.Timezone != DefaultTimezone || signup.Token == "" {
		t.Fatalf("unexpected signup response: %+v", signup)
	}
	if strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("password material leaked: %s", w.Body)
	}

	w = httptest.NewRecorder()
	h.SignupHandler()(w, httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"name":"Other","email":"asha@example.com","password":"x"}`)))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate signup status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.LoginHandler()(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"wrong"}`)))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.LoginHandler()(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"asha@example.com","password":"pw"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d", w.Code)
	}
	var login authResponse
	_ = json.Unmarshal(w.Body.Bytes(), &login)

	mw := New(testSecret, users, nil)
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	mw.Wrap(MeHandler())(w, r)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Asha"`) {
		t.Fatalf("me = %d %s", w.Code, w.Body)
	}
}

func TestSignupRequiresFields(t *testing.T) {
	w := httptest.NewRecorder()
	testHandlers(newMemoryUsers()).SignupHandler()(w, httptest.NewRequest(http.MethodPost, "/auth/signup",
		strings.NewReader(`{"email":"a@b.c","password":"pw"}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestMiddlewareRejects(t *testing.T) {
	users := newMemoryUsers()
	mw := New(testSecret, users, nil)
	next := func(w http.ResponseWriter, r *http.Request) { t.Fatalf("next must not run") }

	ghost, _ := GenerateToken(testSecret, "ghost", time.Minute)
	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer not-a-jwt",
		"unknown user":   "Bearer " + ghost,
	}
	for name, header := range cases {
		r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		mw.Wrap(next)(w, r)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d", name, w.Code)
		}
		if !strings.Contains(w.Body.String(), `"message"`) {
			t.Fatalf("%s: body = %s", name, w.Body)
		}
	}
}

func TestMiddlewareTagsAnalyticsContext(t *testing.T) {
	users := newMemoryUsers()
	_ = users.CreateUser(context.Background(), &User{ID: "u-7", Email: "x@y.z"})
	tok, _ := GenerateToken(testSecret, "u-7", time.Minute)

	r := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	r.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()

	New(testSecret, users, nil).Wrap(func(w http.ResponseWriter, r *http.Request) {
		if uid, ok := analytics.UserIDFromContext(r.Context()); !ok || uid != "u-7" {
			t.Fatalf("analytics user = %q, %v", uid, ok)
		}
	})(w, r)
}

func TestDeleteAccount(t *testing.T) {
	users := newMemoryUsers()
	u := &User{ID: "u-1", Email: "a@b.c"}
	_ = users.CreateUser(context.Background(), u)

	r := httptest.NewRequest(http.MethodDelete, "/auth/account", nil)
	r = r.WithContext(WithUser(r.Context(), u))
	w := httptest.NewRecorder()
	purger := &recordingPurger{}
	DeleteAccountHandler(users, []DataPurger{purger}, analytics.NewLogger(nil, nil), zap.NewNop())(w, r)

	if w.Code != http.StatusOK || len(users.deleted) != 1 {
		t.Fatalf("status = %d deleted = %v", w.Code, users.deleted)
	}
	if len(purger.users) != 1 || purger.users[0] != "u-1" {
		t.Fatalf("purged = %v", purger.users)
	}
}
