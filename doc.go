// Package shop provides the account and catalog backend for a small
// commerce API: credential hashing, JWT session issuance, HTTP middleware,
// and Bun-backed repositories.
//
// Sessions:
//   - TokenService signs and validates HS256 session tokens. A remember-me
//     sign-in stretches the token lifetime; the session cookie always
//     carries a fixed seven-day expiry, so the token inside is the source
//     of truth for session validity.
//   - ProtectedRoute builds the request middleware: it reads the token
//     from the session cookie first, falls back to the Authorization
//     header, and clears the cookie whenever a presented token fails
//     validation.
//
// Accounts:
//   - Accounts sign up with a username and phone number. Sign-in accepts
//     either in one field and classifies it by shape: ten to fifteen
//     digits reads as a phone number, anything else as a username.
//   - Federated sign-in resolves a provider access token to a profile and
//     provisions a local account keyed by email on first use.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to
//     describe sign-up, sign-in, and password events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package shop
