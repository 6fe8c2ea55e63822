package seed

import (
	"context"
	"fmt"
	"strings"

	"vendordesk/internal/domain"
	"vendordesk/internal/repository/storage"

	"github.com/google/uuid"
)

// DevSessionID is the fixed session a local dashboard can use without logging in.
const DevSessionID = "00000000-0000-4000-8000-000000000001"

// Token is one vendor token to place in client storage.
type Token struct {
	SessionID string
	Value     string
}

// Apply stores development vendor tokens for manual testing. It is idempotent via upsert.
func Apply(ctx context.Context, repo storage.Repository, key string, tokens []Token) error {
	for _, t := range tokens {
		if _, err := uuid.Parse(t.SessionID); err != nil {
			return fmt.Errorf("session %q: %w", t.SessionID, err)
		}
		if strings.TrimSpace(t.Value) == "" {
			return fmt.Errorf("session %s: %w", t.SessionID, domain.NewValidationError("token required", "token"))
		}
		if err := repo.Set(ctx, t.SessionID, key, strings.TrimSpace(t.Value)); err != nil {
			return fmt.Errorf("store token for session %s: %w", t.SessionID, err)
		}
	}
	return nil
}
