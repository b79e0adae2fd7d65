package idempotency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func ownerFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ownerKey{}).(string)
	return v, ok
}

type ownerKey struct{}

func newGuard(t *testing.T) (*Guard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, ownerFromContext, nil), mr
}

func request(owner, key string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{}`))
	if key != "" {
		r.Header.Set(Header, key)
	}
	return r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner))
}

func TestDuplicateAfterSuccess(t *testing.T) {
	g, mr := newGuard(t)
	calls := 0
	h := g.Wrap(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	h(w, request("u1", "abc"))
	if w.Code != http.StatusCreated {
		t.Fatalf("first status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h(w, request("u1", "abc"))
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "request already completed") {
		t.Fatalf("duplicate = %d %s", w.Code, w.Body)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	if got, _ := mr.Get("taskmind:idempotency:u1:abc"); got != "1" {
		t.Fatalf("stored state = %q", got)
	}
	if ttl := mr.TTL("taskmind:idempotency:u1:abc"); ttl <= 0 || ttl > TTL {
		t.Fatalf("ttl = %v", ttl)
	}

	// another user with the same key is independent
	w = httptest.NewRecorder()
	h(w, request("u2", "abc"))
	if w.Code != http.StatusCreated {
		t.Fatalf("other owner status = %d", w.Code)
	}
}

func TestDuplicateWhileInFlight(t *testing.T) {
	g, mr := newGuard(t)
	if err := mr.Set("taskmind:idempotency:u1:busy", "0"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	g.Wrap(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run")
	})(w, request("u1", "busy"))

	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), "already being processed") {
		t.Fatalf("in-flight duplicate = %d %s", w.Code, w.Body)
	}
}

func TestFailureReleasesKey(t *testing.T) {
	g, mr := newGuard(t)
	h := g.Wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	h(httptest.NewRecorder(), request("u1", "k"))
	if mr.Exists("taskmind:idempotency:u1:k") {
		t.Fatalf("key should be released after a failed request")
	}
}

func TestNoKeyAndRedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	g := New(rdb, ownerFromContext, nil)
	calls := 0
	h := g.Wrap(func(w http.ResponseWriter, r *http.Request) { calls++ })

	h(httptest.NewRecorder(), request("u1", ""))
	h(httptest.NewRecorder(), request("u1", ""))

	mr.Close()
	h(httptest.NewRecorder(), request("u1", "k"))

	if calls != 3 {
		t.Fatalf("handler calls = %d, want 3", calls)
	}

	var disabled *Guard
	disabled.Wrap(func(w http.ResponseWriter, r *http.Request) { calls++ })(httptest.NewRecorder(), request("u1", "k"))
	if calls != 4 {
		t.Fatalf("nil guard should pass through")
	}
}
