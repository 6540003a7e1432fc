// Package host owns the native messaging session.
//
// Ownership boundary:
// - command dispatch to collaborators
// - the read -> dispatch -> write loop
// - panic to unexpectedFailure translation
//
// Lifecycle order:
// - running -> terminated
//
// - terminated is reached by a stop command (no reply) or a stream failure
// (no reply possible).
//
// - decode errors, command errors and recovered panics produce one reply each
// and never end the session.
//
// The session is strictly sequential: one blocking read, the collaborator
// work, one blocking write. Collaborators never write to the session output.
package host
