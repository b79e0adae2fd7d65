package idempotency

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskmind-backend/internal/respond"
)

const (
	Header = "Idempotency-Key"
	TTL    = 60 * time.Second

	keyPrefix  = "taskmind:idempotency"
	inProgress = "0"
	completed  = "1"
)

// OwnerFunc returns the identity requests are scoped to, usually the
// authenticated user id.
type OwnerFunc func(ctx context.Context) (string, bool)

type Guard struct {
	rdb   *redis.Client
	owner OwnerFunc
	log   *zap.Logger
}

// New returns a Guard; a nil client disables it.
func New(rdb *redis.Client, owner OwnerFunc, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{rdb: rdb, owner: owner, log: log}
}

func (g *Guard) key(owner, k string) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, owner, k)
}

// Wrap rejects a repeated request with the same Idempotency-Key while the
// first one is in flight, and for TTL after it succeeded. A failed request
// frees its key so the user can retry. Redis trouble never blocks a request.
func (g *Guard) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g == nil || g.rdb == nil {
			next(w, r)
			return
		}
		k := strings.TrimSpace(r.Header.Get(Header))
		if k == "" {
			next(w, r)
			return
		}
		owner, ok := g.owner(r.Context())
		if !ok {
			next(w, r)
			return
		}

		ctx := r.Context()
		redisKey := g.key(owner, k)

		acquired, err := g.rdb.SetNX(ctx, redisKey, inProgress, TTL).Result()
		if err != nil {
			g.log.Warn("idempotency store unavailable", zap.Error(err))
			next(w, r)
			return
		}
		if !acquired {
			g.reject(ctx, w, redisKey)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)

		// the request may be done even if the client is gone
		bg := context.WithoutCancel(ctx)
		if sw.status >= 200 && sw.status < 300 {
			err = g.rdb.Set(bg, redisKey, completed, redis.KeepTTL).Err()
		} else {
			err = g.rdb.Del(bg, redisKey).Err()
		}
		if err != nil {
			g.log.Warn("idempotency state update failed", zap.String("key", redisKey), zap.Error(err))
		}
	}
}

func (g *Guard) reject(ctx context.Context, w http.ResponseWriter, redisKey string) {
	msg := "request already completed"
	val, err := g.rdb.Get(ctx, redisKey).Result()
	if err == nil && val == inProgress {
		msg = "request is already being processed"
	} else if err != nil && !errors.Is(err, redis.Nil) {
		g.log.Warn("idempotency state read failed", zap.Error(err))
	}
	respond.Error(w, http.StatusConflict, msg)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
