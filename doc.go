// Package auth implements a stateless credential-and-token authentication
// core: bcrypt credential verification, paired access/refresh JWT issuance,
// and a per-request bearer-token gate for go-router applications.
//
// Token model:
//   - Tokens are self-contained HS256 JWTs carrying subject (username),
//     issuance/expiry timestamps, and a "use" claim that marks them as
//     access or refresh tokens. Nothing is persisted server side.
//   - Refresh never rotates: the refresh flow mints a new access token and
//     echoes the inbound refresh token unchanged. There is no revocation
//     mechanism, so a leaked refresh token stays valid until it expires.
//     Pick TTLs accordingly.
//
// Request gate:
//   - middleware/jwtware populates the request context with validated
//     claims but never rejects a request on its own. Routes that require an
//     authenticated caller compose RequireAuthenticated, which answers with
//     a structured 401 when the context stays anonymous.
//
// Claims decoration:
//   - ClaimsDecorator is invoked before JWTs are signed. Decorators may
//     enrich extension fields such as resource roles or metadata while
//     protected claims (sub, iss, aud, exp, use) remain immutable.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther to
//     describe login, registration, and refresh events. Sinks run
//     best-effort (errors are logged) so you can forward to a database or
//     queue without blocking authentication.
package auth
