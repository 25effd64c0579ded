// Package model defines the wire types exchanged with the habit-tracker REST
// API and the durable records kept by the offline retry queue.
//
// # Queued Mutations
//
// A QueuedMutation carries exactly one Payload. Payload is sealed: only
// ToggleRequest, CompleteRequest and BulkRequest implement it, and consumers
// dispatch through Accept with a PayloadVisitor. Adding a mutation kind means
// adding a Visit method, which breaks every visitor at compile time until it
// handles the new kind.
//
// # Dates
//
// Logical dates are calendar days encoded as "YYYY-MM-DD" (DateLayout). They
// are compared as strings; no time zone is attached.
package model
