package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/event-ticketing/internal/repository"
)

// purgeExpiredTokens deletes refresh tokens that expired or were revoked
// more than a day ago, once an hour until ctx is done.
func purgeExpiredTokens(ctx context.Context, tokens *repository.TokenRepo, logger zerolog.Logger) {
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.PurgeExpired(ctx, now.UTC().Add(-24*time.Hour))
			if err != nil {
				logger.Warn().Err(err).Msg("refresh token purge failed")
				continue
			}
			if n > 0 {
				logger.Info().Int64("deleted", n).Msg("expired refresh tokens purged")
			}
		}
	}
}
