// Package identity owns the durable account record: lookup, creation,
// profile updates, and the single persisted refresh-token hash per account.
//
// The refresh-token column is the only mutable state shared between requests.
// All writes to it go through SetRefreshTokenHash (login, unconditional),
// SwapRefreshTokenHash (rotation, compare-and-swap), and
// ClearRefreshTokenHash (logout).
package identity
