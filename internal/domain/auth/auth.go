// Package auth manages the administrative account guarding the dashboard.
// Passwords are stored as HMAC-SHA256 hashes keyed with a deployment pepper
// and verified with a constant-time comparison.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/go-faster/errors"
)

// Defaults seeded when no admin record exists yet.
const (
	DefaultUsername = "admin"
	defaultPassword = "admin123"
)

var (
	// ErrBadCredentials is returned when authentication fails.
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrPasswordMismatch is returned when a password change confirmation
	// does not match or the new password is empty.
	ErrPasswordMismatch = errors.New("password mismatch or empty")
)

// Admin is a stored administrator account.
type Admin struct {
	Username string
	PassHash string
}

// Hasher computes peppered password hashes.
type Hasher struct {
	pepper []byte
}

// NewHasher creates a Hasher with the given pepper. An empty pepper is
// permitted (the hash degrades to plain HMAC with an empty key) so that
// development setups work without configuration.
func NewHasher(pepper string) Hasher {
	return Hasher{pepper: []byte(pepper)}
}

// Hash returns the hex HMAC-SHA256 of the password.
func (h Hasher) Hash(password string) string {
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// verify compares a password against a stored hash in constant time.
func (h Hasher) verify(password, storedHex string) bool {
	stored, err := hex.DecodeString(storedHex)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(password))
	return subtle.ConstantTimeCompare(mac.Sum(nil), stored) == 1
}

// Accounts is the in-memory admin table.
type Accounts struct {
	admins []Admin
	hasher Hasher
}

// NewAccounts builds the account table from loaded records. When no record
// exists, the default admin account is seeded.
func NewAccounts(admins []Admin, hasher Hasher) *Accounts {
	a := &Accounts{
		admins: append([]Admin(nil), admins...),
		hasher: hasher,
	}
	if len(a.admins) == 0 {
		a.admins = append(a.admins, Admin{
			Username: DefaultUsername,
			PassHash: hasher.Hash(defaultPassword),
		})
	}
	return a
}

// Authenticate checks a username/password pair.
func (a *Accounts) Authenticate(username, password string) error {
	username = strings.TrimSpace(username)
	for _, adm := range a.admins {
		if adm.Username == username && a.hasher.verify(strings.TrimSpace(password), adm.PassHash) {
			return nil
		}
	}
	return ErrBadCredentials
}

// ChangePassword replaces an admin's password after verifying the current
// one and the confirmation.
func (a *Accounts) ChangePassword(username, current, next, confirm string) error {
	next = strings.TrimSpace(next)
	if next == "" || next != strings.TrimSpace(confirm) {
		return ErrPasswordMismatch
	}
	for i, adm := range a.admins {
		if adm.Username == strings.TrimSpace(username) {
			if !a.hasher.verify(strings.TrimSpace(current), adm.PassHash) {
				return ErrBadCredentials
			}
			a.admins[i].PassHash = a.hasher.Hash(next)
			return nil
		}
	}
	return ErrBadCredentials
}

// Snapshot returns the stored accounts, for persistence.
func (a *Accounts) Snapshot() []Admin {
	return append([]Admin(nil), a.admins...)
}
