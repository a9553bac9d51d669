// Package auth provides authentication and session handling for dushu.
//
// # Authentication Variants
//
// A deployment runs exactly one of two variants, selected by configuration:
//
//   - Shared password: every user presents one fixed password, compared
//     against a bcrypt hash. Sessions carry no identity and data lands
//     under the sentinel user.
//
//   - Google sign-in: identity verification is delegated to Google via
//     OAuth. An optional allow-list restricts which verified email
//     addresses may log in.
//
// # Sessions
//
// Sessions are signed JWT tokens (HS256) carried in an HttpOnly cookie and
// verified on every request. The token is the only session state; nothing
// is stored server-side. RequireSession gates protected handlers and
// attaches the verified Session to the request context.
package auth
