// Package password implements credential hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format with unpadded base64 segments:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification always uses the parameters embedded in the stored string, so hashes
// produced under older defaults remain verifiable. [Argon2.NeedsUpgrade] reports
// strings produced with weaker parameters than the current configuration.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy is enforced at the
// transport boundary. Recovery codes are hashed with the same primitive.
//
// # What this package must NOT do
//
//   - Store or retrieve credentials.
//   - Import any other package of this module.
//   - Log plaintext secrets or hash material.
package password
