// Package models defines the persistent entities stored by the server.
package models

import "time"

// User is the identity record for one vault owner. The server never sees the
// master secret: AuthKey is already a client-derived value, and Vault/VaultIV
// are opaque ciphertext the server stores and returns without interpreting.
//
// Salt and Iterations are fixed at creation time. Changing them afterwards
// would make previously encrypted vault data undecryptable by the client's
// re-derived key.
//
// Vault and VaultIV are a pair: they are always read and written together.
type User struct {
	ID         string
	Email      string
	AuthKey    string
	Salt       string
	Iterations int
	Vault      string
	VaultIV    string
	CreatedAt  time.Time
}
