// Package canon produces canonical JSON and content fingerprints.
//
// Canonical JSON follows RFC 8785 ordering rules: object keys sorted by UTF-16
// code units, no insignificant whitespace, no HTML escaping, strings NFC
// normalized. Floats are rejected so that encodings never depend on float
// formatting; every numeric field in the view model is an integer.
//
// Fingerprints are SHA-256 over a domain prefix, a 0x00 separator and the
// canonical bytes. Two engines that reach the same state produce the same
// fingerprint, which is how replay determinism and snapshot idempotence are
// checked.
package canon
