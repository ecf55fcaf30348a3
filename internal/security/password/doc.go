// Package password provides one-way password hashing and verification.
//
// It implements Argon2id with a PHC-like encoded string format and includes:
// - Configurable Argon2id cost parameters (via environment variables)
// - Password policy validation
// - Strict hash decoding and verification with anti-DoS bounds
//
// Hash strings are treated as untrusted input during Verify and are
// validated accordingly; comparison is constant-time.
package password
