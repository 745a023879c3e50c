// Copyright 2026 EduSuite Ltd.
// SPDX-License-Identifier: AGPL-3.0

package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plaintext password with the given bcrypt cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// needsRehash reports whether a stored hash was produced with a weaker
// cost than currently configured. Verified logins are transparently
// upgraded on the way in.
func needsRehash(hash string, cost int) bool {
	stored, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return stored < cost
}

var errNotBcrypt = errors.New("stored hash is not bcrypt")

// checkHash distinguishes a mismatch from an unreadable hash so callers
// can log corrupt rows without leaking that to the client.
func checkHash(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrHashTooShort) {
		return errNotBcrypt
	}
	return err
}
