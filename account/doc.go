// Package account implements the credential lifecycle for the health-scan
// backend: registration, email verification, login, password reset, and
// resend-verification.
//
// Lifecycle operations:
//   - Each operation is a message plus a handler (RegisterHandler,
//     LoginHandler, VerifyEmailHandler, ...) executing a read-decide-write
//     sequence against the Users repository inside a transaction. Handlers
//     never hold locks; uniqueness is enforced by the storage layer.
//   - Verification and reset tokens are opaque, single-use, and
//     time-bounded. Lookups match the exact token and its expiry in a
//     single query, so there is no separate "exists" check that could leak
//     validity through timing.
//
// Enumeration resistance:
//   - Login reports the same InvalidCredentials error for unknown users and
//     wrong passwords. ForgotPassword acknowledges identically whether or
//     not the email is registered. VerifyEmail and ResetPassword conflate
//     "not found" and "expired" into one error kind. These are deliberate
//     properties; do not make the responses more informative.
//
// Sessions are stateless HS256 JWTs issued by SessionIssuer and verified
// without a store lookup.
package account
