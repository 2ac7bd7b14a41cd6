// Package resettoken keeps single-use password reset tokens and answers
// validity queries about them.
package resettoken

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ResetToken is one issued reset credential.
type ResetToken struct {
	Email   string    `json:"email"`
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
	Used    bool      `json:"used"`
}

// IsValidAt reports whether the token can still be redeemed at now.
func (t ResetToken) IsValidAt(now time.Time) bool {
	return !t.Used && !now.After(t.Expires)
}

// Store is the token storage abstraction used by the password reset handlers.
// Absence is never an error: Get returns nil, IsValid and MarkAsUsed return false.
// Issuing a new token for an email does not revoke earlier ones.
type Store interface {
	// Save inserts or overwrites the entry for token with used=false.
	Save(ctx context.Context, email, token string, expiresAt time.Time) error
	// Get is a plain lookup with no validation.
	Get(ctx context.Context, token string) (*ResetToken, error)
	// IsValid is true iff the token exists, is unused and has not expired.
	IsValid(ctx context.Context, token string) (bool, error)
	// MarkAsUsed flags an existing token as used. Expiry is not checked.
	MarkAsUsed(ctx context.Context, token string) (bool, error)
	// Cleanup removes expired or used entries and returns how many were removed.
	Cleanup(ctx context.Context) (int, error)
	// GetAll dumps every entry. Diagnostic only.
	GetAll(ctx context.Context) ([]ResetToken, error)
}

// StartSweeper calls store.Cleanup every interval until ctx is cancelled.
func StartSweeper(ctx context.Context, store Store, interval time.Duration, log *zap.Logger) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := store.Cleanup(ctx)
				if err != nil {
					log.Warn("reset token cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					log.Info("reset tokens swept", zap.Int("removed", removed))
				}
			}
		}
	}()
}
