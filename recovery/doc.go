// Package recovery generates one-time recovery codes and verifies them against their
// stored hashes.
//
// A code is shown in plaintext exactly once, when generated. Only its hash is ever
// persisted. Codes use the alphabet A-Z0-9 and are at least 12 characters long.
package recovery
