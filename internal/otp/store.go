package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tickify/ticketing/internal/utils"
)

var (
	ErrCodeExpired     = errors.New("verification code expired or not issued")
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrTooManyAttempts = errors.New("too many verification attempts")
)

const (
	defaultTTL         = 5 * time.Minute
	defaultMaxAttempts = 5
	codeDigits         = 6
)

// Store keeps one-time verification codes in redis, keyed by the address
// (email or phone) they were sent to. Codes expire on their own and attempt
// counters survive process restarts, so verification works across instances
// with no process-local state.
type Store struct {
	Client      *redis.Client
	TTL         time.Duration
	MaxAttempts int
}

func NewStore(client *redis.Client) *Store {
	return &Store{Client: client, TTL: defaultTTL, MaxAttempts: defaultMaxAttempts}
}

func codeKey(address string) string {
	return "otp:code:" + address
}

func attemptsKey(address string) string {
	return "otp:attempts:" + address
}

// Issue generates a fresh code for an address, replacing any outstanding one
// and resetting the attempt counter.
func (s *Store) Issue(ctx context.Context, address string) (string, error) {
	code := utils.GenerateOTP(codeDigits)

	pipe := s.Client.TxPipeline()
	pipe.Set(ctx, codeKey(address), code, s.TTL)
	pipe.Del(ctx, attemptsKey(address))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("failed to issue code for %s: %w", address, err)
	}
	return code, nil
}

// Verify checks a submitted code. Each wrong submission burns an attempt;
// once MaxAttempts is reached the code is revoked and the caller must
// request a new one. A correct submission consumes the code.
func (s *Store) Verify(ctx context.Context, address, submitted string) error {
	stored, err := s.Client.Get(ctx, codeKey(address)).Result()
	if err == redis.Nil {
		return ErrCodeExpired
	}
	if err != nil {
		return fmt.Errorf("otp store read: %w", err)
	}

	attempts, err := s.Client.Incr(ctx, attemptsKey(address)).Result()
	if err != nil {
		return fmt.Errorf("otp attempt count: %w", err)
	}
	// The counter expires with the code so a stale counter never locks out
	// a future code.
	_ = s.Client.Expire(ctx, attemptsKey(address), s.TTL).Err()

	if attempts > int64(s.MaxAttempts) {
		_ = s.Client.Del(ctx, codeKey(address)).Err()
		return ErrTooManyAttempts
	}

	if stored != submitted {
		return ErrCodeMismatch
	}

	pipe := s.Client.TxPipeline()
	pipe.Del(ctx, codeKey(address))
	pipe.Del(ctx, attemptsKey(address))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("otp consume: %w", err)
	}
	return nil
}
