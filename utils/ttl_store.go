package utils

import (
	"context"
	"sync"
	"time"
)

// ttlSet is a set of keys that expire. It lives in Redis when a client is
// available and in process memory otherwise (single instance only).
type ttlSet struct {
	prefix string

	mu  sync.Mutex
	mem map[string]time.Time
}

func newTTLSet(prefix string) *ttlSet {
	return &ttlSet{prefix: prefix, mem: make(map[string]time.Time)}
}

func (s *ttlSet) add(key string, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, s.prefix+key, "1", ttl).Err(); err == nil {
			return
		}
	}
	s.mu.Lock()
	s.mem[key] = time.Now().Add(ttl)
	s.mu.Unlock()
}

func (s *ttlSet) has(key string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := rc.Exists(ctx, s.prefix+key).Result(); err == nil && n > 0 {
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.mem[key]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(s.mem, key)
		return false
	}
	return true
}

// take reports whether key was present and removes it.
func (s *ttlSet) take(key string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, s.prefix+key).Result(); err == nil && v != "" {
			return true
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.mem[key]
	if !ok {
		return false
	}
	delete(s.mem, key)
	return time.Now().Before(exp)
}

var (
	tokenBlacklist = newTTLSet("jwt:blacklist:")
	oauthStates    = newTTLSet("oauth:state:")
)

// BlacklistToken revokes a token until its natural expiration.
func BlacklistToken(token string, expiresAt time.Time) {
	tokenBlacklist.add(token, time.Until(expiresAt))
}

// IsTokenBlacklisted checks if a token was revoked before natural expiration.
func IsTokenBlacklisted(token string) bool {
	return tokenBlacklist.has(token)
}

// SaveState stores an OAuth state token with TTL to mitigate CSRF.
func SaveState(state string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	oauthStates.add(state, ttl)
}

// ConsumeState validates and removes a state token.
func ConsumeState(state string) bool {
	return oauthStates.take(state)
}
