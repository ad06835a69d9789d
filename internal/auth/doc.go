// Package auth resolves the identity of API requests.
//
// Authentication itself happens in front of the service: a gateway or an
// upstream application forwards the requesting user in trusted headers.
// The identity middleware reads them through an IdentityFunc, makes sure the
// user row exists and stores the Identity in the fiber locals.
//
// # Headers
//
// HeaderIdentity reads, by default:
//   - X-Confetti-User: numeric user id, absent for anonymous requests
//   - X-Confetti-Username: optional username
//   - X-Confetti-Staff: "true" for staff users
//   - X-Confetti-Superuser: "true" for superusers
//
// # Middleware
//
//   - Middleware: resolve the identity and ensure the user
//   - RequireAuthenticated: reject anonymous requests with 401
//   - RequireStaff: reject requests of non staff users with 403
//
// Example usage:
//
//	app.Use(auth.Middleware(db, auth.HeaderIdentity(auth.DefaultHeaders())))
//
//	app.Post("/admin/cache/purge", auth.RequireStaff(), handler)
package auth
