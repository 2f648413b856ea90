// Package auth provides bearer-token authorisation for the loadsynth API.
//
// Tokens are HS256-signed JWTs carrying a subject and a role:
//   - viewer: read runs, statistics and occurrences, subscribe to progress
//   - admin: everything a viewer can do, plus deleting runs and reading
//     the audit log
//
// Tokens are validated by signature and expiry only; there is no token
// store. Rotating the shared secret invalidates every issued token.
package auth
