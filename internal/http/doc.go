// Package http provides HTTP handlers and middleware for the timetable API.
//
// Authentication happens upstream. The gateway forwards the acting user in the
// `X-User-ID` header and its role (`admin`, `professor` or `student`) in
// `X-User-Role`; RequirePrincipal turns them into an application.Principal.
//
// The router exposes the following endpoints:
//   - GET /slots: lists slots. Query: type, classId, professorId, roomId, courseId,
//     status, startDate, endDate (dates as YYYY-MM-DD, inclusive).
//   - POST /slots: books a slot and, when `recurrence` is set, its occurrences.
//     Responds with {"slot","occurrences","skipped"}. Conflicts answer 400 with
//     error_code SCHEDULE_CONFLICT and the conflicting slots.
//   - POST /slots/conflicts: reports conflicts for a prospective booking without
//     storing anything.
//   - POST /slots/expand: previews the occurrences of a recurring slot together
//     with the conflicts each one would cause.
//   - PUT /slots/{id}: partial update; POST /slots/{id}/cancel: cancels with a reason.
//   - GET /classes/{id}/slots, GET /professors/{id}/slots: per owner timetables.
//   - GET /rooms, POST /rooms, PUT /rooms/{id}, DELETE /rooms/{id}: room catalog.
//   - GET /rooms/available: rooms matching date, startTime, endTime, capacity and
//     facilities.
//   - GET /rooms/stats: usage per room for administrators.
//   - GET /healthz: liveness, unauthenticated.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
