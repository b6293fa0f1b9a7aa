// Package validation provides centralized input validation logic.
// This includes directory request validation, object key validation, and
// concurrency bounds.
//
// Requests are validated before any listing or filesystem work starts so a
// bad request never schedules a single item.
package validation
