package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RevocationStore records logged-out token ids until the token would have
// expired anyway. It also records per-subject cutoffs: every token of a
// subject issued before its cutoff is rejected until expiresAt, which
// callers set to cutoff plus the token lifetime.
type RevocationStore interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	RevokeSubject(ctx context.Context, subject string, cutoff, expiresAt time.Time) error
	SubjectCutoff(ctx context.Context, subject string) (time.Time, bool, error)
}

type subjectCutoff struct {
	cutoff    time.Time
	expiresAt time.Time
}

// MemoryRevocationStore keeps revocations in process. Entries are swept
// every 5 minutes once past their expiry.
type MemoryRevocationStore struct {
	mu       sync.RWMutex
	entries  map[string]time.Time
	subjects map[string]subjectCutoff
	done     chan struct{}
	once     sync.Once
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	s := &MemoryRevocationStore{
		entries:  make(map[string]time.Time),
		subjects: make(map[string]subjectCutoff),
		done:     make(chan struct{}),
	}
	go s.cleanupLoop(5 * time.Minute)
	return s
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = expiresAt
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[jti]
	return ok, nil
}

func (s *MemoryRevocationStore) RevokeSubject(_ context.Context, subject string, cutoff, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.subjects[subject]; ok && prev.cutoff.After(cutoff) {
		cutoff = prev.cutoff
	}
	s.subjects[subject] = subjectCutoff{cutoff: cutoff, expiresAt: expiresAt}
	return nil
}

func (s *MemoryRevocationStore) SubjectCutoff(_ context.Context, subject string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.subjects[subject]
	return sc.cutoff, ok, nil
}

func (s *MemoryRevocationStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryRevocationStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *MemoryRevocationStore) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.cleanup(now)
		}
	}
}

func (s *MemoryRevocationStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jti, exp := range s.entries {
		if now.After(exp) {
			delete(s.entries, jti)
		}
	}
	for sub, sc := range s.subjects {
		if now.After(sc.expiresAt) {
			delete(s.subjects, sub)
		}
	}
}

// RedisRevocationStore shares revocations between server instances. Keys
// carry a TTL equal to the token's remaining lifetime.
type RedisRevocationStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisRevocationStore(client *redis.Client, prefix string) *RedisRevocationStore {
	if prefix == "" {
		prefix = "healthwatch:revoked:"
	}
	return &RedisRevocationStore{client: client, prefix: prefix, now: time.Now}
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, s.prefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) RevokeSubject(ctx context.Context, subject string, cutoff, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	key := s.subjectKey(subject)
	if prev, ok, err := s.SubjectCutoff(ctx, subject); err != nil {
		return err
	} else if ok && prev.After(cutoff) {
		cutoff = prev
	}
	if err := s.client.Set(ctx, key, strconv.FormatInt(cutoff.UnixNano(), 10), ttl).Err(); err != nil {
		return fmt.Errorf("revoke subject: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) SubjectCutoff(ctx context.Context, subject string) (time.Time, bool, error) {
	v, err := s.client.Get(ctx, s.subjectKey(subject)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("check subject revocation: %w", err)
	}
	ns, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse subject cutoff %q: %w", v, err)
	}
	return time.Unix(0, ns), true, nil
}

func (s *RedisRevocationStore) subjectKey(subject string) string {
	return s.prefix + "sub:" + subject
}
