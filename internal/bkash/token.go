package bkash

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/bkashgate/internal/gateway"
	"github.com/dmitrijs2005/bkashgate/internal/metrics"
)

const connectFailure = "Failed to connect to bKash API"

// GetToken returns a valid bearer token for tenant, from cache when possible.
//
// On a miss it performs the grant call and caches the id_token for expires_in
// seconds (or the configured lifetime). When the id_token is a JWT whose exp
// comes earlier, the cache entry expires at exp instead. A refresh_token in
// the reply is cached as well.
func (s *Service) GetToken(ctx context.Context, tenant string) (token string, err error) {
	ctx, done := s.observe(ctx, "GetToken", tenant)
	defer func() { done(err) }()

	return s.getToken(ctx, tenant)
}

func (s *Service) getToken(ctx context.Context, tenant string) (string, error) {
	cached, err := s.cache.Get(ctx, tenant)
	if err != nil {
		return "", wrap(KindTokenGeneration, "Failed to read token cache", err)
	}
	s.metrics.CacheLookup(metrics.KindAccess, cached != nil)
	if cached != nil {
		return cached.Value, nil
	}

	resp, err := s.gateway.GrantToken(ctx)
	if err != nil {
		return "", wrap(KindTokenGeneration, connectFailure, err)
	}
	if !resp.Succeeded("id_token") {
		return "", upstreamError(KindTokenGeneration, resp, "Failed to generate token")
	}

	if err := s.storeTokens(ctx, tenant, resp); err != nil {
		return "", wrap(KindTokenGeneration, "Failed to store token", err)
	}

	s.logger.Info(ctx, "bkash token granted", "tenant", tenant)
	return resp.String("id_token"), nil
}

// RefreshToken obtains a new bearer token with the cached refresh token.
// Without one it behaves exactly like GetToken. A failed refresh is reported
// as a RefreshToken error and does not fall back to a grant.
func (s *Service) RefreshToken(ctx context.Context, tenant string) (token string, err error) {
	ctx, done := s.observe(ctx, "RefreshToken", tenant)
	defer func() { done(err) }()

	refresh, err := s.cache.GetRefresh(ctx, tenant)
	if err != nil {
		return "", wrap(KindRefreshToken, "Failed to read token cache", err)
	}
	s.metrics.CacheLookup(metrics.KindRefresh, refresh != nil)
	if refresh == nil {
		return s.getToken(ctx, tenant)
	}

	resp, err := s.gateway.RefreshToken(ctx, refresh.Value)
	if err != nil {
		return "", wrap(KindRefreshToken, connectFailure, err)
	}
	if !resp.Succeeded("id_token") {
		return "", upstreamError(KindRefreshToken, resp, "Failed to refresh token")
	}

	if err := s.storeTokens(ctx, tenant, resp); err != nil {
		return "", wrap(KindRefreshToken, "Failed to store token", err)
	}

	s.logger.Info(ctx, "bkash token refreshed", "tenant", tenant)
	return resp.String("id_token"), nil
}

func (s *Service) storeTokens(ctx context.Context, tenant string, resp *gateway.Response) error {
	idToken := resp.String("id_token")

	ttl := s.tokenLifetime
	if secs, ok := resp.Int("expires_in"); ok && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	ttl = clampToJWTExpiry(idToken, s.now(), ttl)

	if ttl > 0 {
		if err := s.cache.Put(ctx, tenant, idToken, ttl); err != nil {
			return err
		}
	} else {
		s.logger.Warn(ctx, "granted id_token is already expired, not caching", "tenant", tenant)
	}

	if refresh := resp.String("refresh_token"); refresh != "" {
		if err := s.cache.PutRefresh(ctx, tenant, refresh, s.refreshTokenLifetime); err != nil {
			return err
		}
	}
	return nil
}

// clampToJWTExpiry shortens ttl so the cache never outlives the token's own
// exp claim. Tokens that are not JWTs, or carry no exp, keep ttl.
func clampToJWTExpiry(token string, now time.Time, ttl time.Duration) time.Duration {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ttl
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return ttl
	}
	if left := exp.Sub(now); left < ttl {
		return left
	}
	return ttl
}
