// Package token provides digest helpers for server-side storage of
// refresh-token material. The plaintext token never touches the database;
// only the digest does, so a database leak cannot be replayed as a session.
package token
