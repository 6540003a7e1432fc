// Package protocol owns the native messaging wire contract.
//
// Ownership boundary:
// - command/response/error vocabularies
// - JSON payload encode/decode with the "type" tag
// - frame primitives (subpackage frame)
//
// Every payload is a UTF-8 JSON object whose "type" field names exactly one
// variant. Command tags, response tags and error kinds never overlap.
package protocol
