// Package queue defines message payloads exchanged over the message broker.
package queue

// AuditEvent is published for every mutating operation: who did what to
// which record, plus the request metadata that used to be smuggled in
// through ambient request state. It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type AuditEvent struct {
    Action   string `json:"action"`    // created / updated / deleted / image_uploaded / image_deleted / reviewed / toggled
    Entity   string `json:"entity"`    // e.g. "property", "deal", "showing", "kyc_profile"
    ObjectID string `json:"object_id"` // identifier of the affected record
    ActorID  uint64 `json:"actor_id"`  // authenticated user, 0 for anonymous flows
    IP       string `json:"ip"`        // client address as seen by the edge
    Method   string `json:"method"`    // HTTP method of the originating request
    Path     string `json:"path"`      // request path
    Message  string `json:"message"`   // optional free-form detail
    At       string `json:"at"`        // UTC timestamp of the event
}

// PasswordResetEvent carries a raw reset code to the mail worker. The
// code exists in clear text only on the broker; at rest the users
// table holds its hash.
type PasswordResetEvent struct {
    Email string `json:"email"`
    Code  string `json:"code"`
    At    string `json:"at"`
}
