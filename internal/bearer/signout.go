package bearer

import (
	"context"
	"log/slog"
	"time"

	"portico/internal/dispatch"
)

// TokenRevoker is the consumer-side view for adding tokens to the
// revocation list.
type TokenRevoker interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
}

// defaultRevocationTTL bounds the revocation entry when the token carries
// no expiry claim to derive one from.
const defaultRevocationTTL = time.Hour

// SignOutRevoker revokes the transaction's bearer token during sign-out so
// it cannot be replayed after logout. It never settles the exchange; the
// sign-out renderer still owns the response. Revocation failures are logged
// and the sign-out proceeds.
type SignOutRevoker struct {
	revoker TokenRevoker
	logger  *slog.Logger
}

func NewSignOutRevoker(revoker TokenRevoker, logger *slog.Logger) *SignOutRevoker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignOutRevoker{revoker: revoker, logger: logger}
}

func (s *SignOutRevoker) Handle(ctx context.Context, ex *dispatch.Exchange) error {
	principal := ex.Transaction().Principal()
	if principal == nil {
		return nil
	}
	jti, _ := principal.Claims["jti"].(string)
	if jti == "" {
		return nil
	}

	ttl := defaultRevocationTTL
	if exp, ok := principal.Claims["exp"].(time.Time); ok {
		ttl = time.Until(exp)
		if ttl <= 0 {
			// Token is already past its lifetime; nothing to revoke.
			return nil
		}
	}

	if err := s.revoker.Revoke(ctx, jti, ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to revoke token on sign-out",
			"jti", jti,
			"error", err,
		)
	}
	return nil
}
