package inventory

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopcore/backend/internal/domain/shared"
)

// Cursor is a keyset position in a variant's ledger history. Listing is
// ordered newest first by (created_at, id); the cursor names the last row
// of the previous page so a restarted listing resumes after it.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// IsZero reports whether the cursor points at the start of the history
func (c Cursor) IsZero() bool {
	return c.ID == uuid.Nil && c.CreatedAt.IsZero()
}

// Encode renders the cursor as an opaque continuation token
func (c Cursor) Encode() string {
	if c.IsZero() {
		return ""
	}
	raw := fmt.Sprintf("%s|%s", c.CreatedAt.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a continuation token produced by Encode.
// An empty token decodes to the zero cursor.
func DecodeCursor(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, shared.NewDomainError("INVALID_CURSOR", "Malformed continuation token")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return Cursor{}, shared.NewDomainError("INVALID_CURSOR", "Malformed continuation token")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Cursor{}, shared.NewDomainError("INVALID_CURSOR", "Malformed continuation token")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return Cursor{}, shared.NewDomainError("INVALID_CURSOR", "Malformed continuation token")
	}
	return Cursor{CreatedAt: ts, ID: id}, nil
}
