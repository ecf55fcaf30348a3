// Package session implements the session-token lifecycle: credential login,
// access-token verification, refresh rotation, and logout.
//
// The model is single-session-per-account: the account row carries at most
// one valid refresh-token hash. Login overwrites it, rotation replaces it
// via compare-and-swap, logout clears it. Access tokens are self-contained
// and never hit the store for validity.
package session
