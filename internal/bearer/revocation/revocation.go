// Package revocation provides token revocation list stores. A token is
// revoked by its jti claim; entries carry a TTL matching the token's
// remaining lifetime so the list never outgrows the set of live tokens.
package revocation

import (
	"fmt"
	"time"

	"portico/pkg/platform/sentinel"
)

// Clock abstracts time.Now for stores that compare against entry expiry.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
