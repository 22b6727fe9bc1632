// Package httpapi is the JSON transport of the turbodex auth server.
//
// # Routes
//
//	POST /v1/auth/signup          {username, password, display_name} -> 201 {user, recovery_code}
//	POST /v1/auth/login           {username, password}               -> 200 {access_token, refresh_token, token_type, user}
//	POST /v1/auth/token/refresh   {refresh_token}                    -> 200 {access_token, refresh_token, token_type}
//	POST /v1/auth/logout          {refresh_token}                    -> 204
//	POST /v1/auth/password/reset  {username, recovery_code, new_password} -> 204
//	GET  /v1/auth/me              bearer access token               -> 200 {user_id}
//	GET  /v1/health                                                 -> 200 {status}
//	GET  /metrics                 Prometheus exposition, when a handler is supplied
//
// The same handlers are also mounted at the short paths /auth/signup, /auth/login,
// /auth/refresh, /auth/logout, /auth/reset, /me and /healthz.
//
// Errors are written as {"error": code}.
//
// # Architecture boundaries
//
// Input shape is validated here; every auth decision belongs to auth.Engine.
//
// # What this package must NOT do
//
//   - Log request bodies, tokens or recovery codes.
//   - Distinguish an invalid refresh token from a replayed one on the wire.
package httpapi
