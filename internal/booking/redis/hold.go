package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tickify/ticketing/internal/logger"
)

// Holds keeps short-lived advisory claims on seats while a buyer is in the
// checkout flow. A hold only shapes the seat map other buyers see; the
// authoritative claim is the conditional write at booking creation.
type Holds struct {
	Client *redis.Client
	Logger *logger.Logger
}

func NewHolds(client *redis.Client, log *logger.Logger) *Holds {
	return &Holds{Client: client, Logger: log}
}

func holdKey(eventID, label string) string {
	return fmt.Sprintf("seat_hold:%s:%s", eventID, label)
}

// holdDuration returns the hold TTL from SEAT_HOLD_TTL_MINUTES, defaulting
// to 5 minutes.
func (h *Holds) holdDuration() time.Duration {
	defaultDuration := 5 * time.Minute

	ttlStr := os.Getenv("SEAT_HOLD_TTL_MINUTES")
	if ttlStr == "" {
		return defaultDuration
	}
	ttlMin, err := strconv.Atoi(ttlStr)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("HOLD", "Invalid SEAT_HOLD_TTL_MINUTES value '"+ttlStr+"', using default 5 minutes")
		}
		return defaultDuration
	}
	return time.Duration(ttlMin) * time.Minute
}

// IsHeld reports whether a seat currently has an active hold.
func (h *Holds) IsHeld(ctx context.Context, eventID, label string) (bool, error) {
	_, err := h.Client.Get(ctx, holdKey(eventID, label)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HoldSeat places a hold owned by the given session. SetNX keeps two buyers
// from holding the same seat.
func (h *Holds) HoldSeat(ctx context.Context, eventID, label, sessionID string) (bool, error) {
	return h.Client.SetNX(ctx, holdKey(eventID, label), sessionID, h.holdDuration()).Result()
}

// ReleaseSeat drops a hold if the session still owns it.
func (h *Holds) ReleaseSeat(ctx context.Context, eventID, label, sessionID string) error {
	key := holdKey(eventID, label)
	val, err := h.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == sessionID {
		_, err := h.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// HoldSeats holds every seat or none: a partial hold is rolled back so a
// buyer never sits on half a selection.
func (h *Holds) HoldSeats(ctx context.Context, eventID string, labels []string, sessionID string) (bool, error) {
	held := []string{}
	for _, label := range labels {
		ok, err := h.HoldSeat(ctx, eventID, label, sessionID)
		if err != nil {
			for _, l := range held {
				_ = h.ReleaseSeat(ctx, eventID, l, sessionID)
			}
			return false, err
		}
		if !ok {
			for _, l := range held {
				_ = h.ReleaseSeat(ctx, eventID, l, sessionID)
			}
			return false, nil
		}
		held = append(held, label)
	}
	return true, nil
}

// ReleaseSeats drops the session's holds, keeping the first error.
func (h *Holds) ReleaseSeats(ctx context.Context, eventID string, labels []string, sessionID string) error {
	var firstErr error
	for _, label := range labels {
		if err := h.ReleaseSeat(ctx, eventID, label, sessionID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
