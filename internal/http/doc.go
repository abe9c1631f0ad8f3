// Package http provides the chi router, handlers and middleware for the marina
// access-control API.
//
// Public endpoints:
//   - GET /healthz: liveness probe.
//   - GET /metrics: Prometheus exposition.
//   - POST /sessions: exchanges {"email","password"} for a bearer token.
//     Response: {"token","token_type","expires_at","user"}.
//
// Every other endpoint requires "Authorization: Bearer <token>". Owners may
// pick the active site per request with the X-Site-ID header.
//   - GET /me: the authenticated user and the active site.
//   - GET /sites, POST /sites, DELETE /sites/{siteID}: site catalog. Mutations
//     are owner-only.
//   - GET /people?q=, POST /people, GET|PUT|DELETE /people/{personID}: person
//     directory of the active site. DELETE requires admin.
//   - GET /people/{personID}/can-enter, GET /people/{personID}/movements.
//   - POST /movements: registers an entry. Body: {"person_id","observation"}.
//   - POST /movements/{movementID}/exit: registers an exit. Optional body:
//     {"exit_at","observation"}.
//   - PUT /movements/{movementID}: edits timestamps and observation.
//   - DELETE /movements/{movementID}: soft delete, admin only.
//   - GET /movements/inside, GET /movements/history, GET /movements/nearing.
//   - GET /reports/history.csv, GET /reports/history.xlsx: history exports
//     accepting the same filters as /movements/history.
//   - POST /auto-checkout, GET|POST /users, PUT|DELETE /users/{userID},
//     GET /audit-logs: admin only.
//
// Errors are JSON bodies {"error_code","message","errors"} with messages in
// Brazilian Portuguese. Request and response DTOs live next to their handlers.
package http
