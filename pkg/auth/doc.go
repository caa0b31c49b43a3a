// Package auth handles credential issuance and verification for the
// food-cost backend.
//
// Credentials are HS256-signed JWTs carrying the user ID, email, and the
// tenant/super-admin claims derived at issuance time. Verifying a credential
// yields a Principal, the per-request identity that tenant resolution and
// permission evaluation build on:
//
//	tm := auth.NewTokenManager(secret, 24*time.Hour)
//	principal, err := tm.Resolve(bearerToken)
//	if errors.Is(err, auth.ErrInvalidCredential) {
//		// respond 401
//	}
//
// The tenant claims inside a credential are advisory: pkg/tenant re-derives
// the effective tenant on every request and rejects requests whose claim
// disagrees with the directory.
package auth
