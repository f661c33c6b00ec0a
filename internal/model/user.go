package model

import (
	"time"
)

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	UsernameHash string    `db:"username_hash"` // Lookup key; usernames are never queried in cleartext
	Name         string    `db:"name"`
	PasswordHash string    `db:"password_hash"`
	RSAPublic    *string   `db:"rsa_public"` // Client-published public key for conversation key exchange
	CreatedAt    time.Time `db:"created_at"`
}
