package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	pinHashVersion = "v1"
	iterations     = 180000
	minIterations  = 100000
	maxIterations  = 10 * iterations
	minPINLength   = 4
	maxPINLength   = 12
)

var ErrInvalidPIN = errors.New("pin must be 4 to 12 digits")

func ValidatePIN(pin string) error {
	if len(pin) < minPINLength || len(pin) > maxPINLength {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// HashPIN returns a salted, iterated digest in the form
// v1$<iterations>$<salt>$<digest>.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := deriveDigest(pin, salt, iterations)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedDigest := base64.RawStdEncoding.EncodeToString(digest)

	return fmt.Sprintf("%s$%d$%s$%s", pinHashVersion, iterations, encodedSalt, encodedDigest), nil
}

func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, pinHashVersion+"$")
}

// ComparePIN checks a supplied PIN against a stored value that is either a
// HashPIN encoding or a plaintext PIN.
func ComparePIN(stored, supplied string) bool {
	stored = strings.TrimSpace(stored)
	supplied = strings.TrimSpace(supplied)
	if stored == "" || supplied == "" {
		return false
	}
	if IsHashed(stored) {
		return verifyHashedPIN(supplied, stored)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(supplied)) == 1
}

func verifyHashedPIN(pin, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 4 {
		return false
	}
	if parts[0] != pinHashVersion {
		return false
	}

	iters, err := strconv.Atoi(parts[1])
	if err != nil || iters < minIterations || iters > maxIterations {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return false
	}

	expectedDigest, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(expectedDigest) != sha256.Size {
		return false
	}

	actualDigest := deriveDigest(pin, salt, iters)
	return subtle.ConstantTimeCompare(actualDigest, expectedDigest) == 1
}

func deriveDigest(pin string, salt []byte, rounds int) []byte {
	digest := sha256.Sum256(append(append([]byte{}, salt...), []byte(pin)...))
	buf := digest[:]
	for i := 1; i < rounds; i++ {
		next := sha256.Sum256(append(buf, salt...))
		buf = next[:]
	}
	finalDigest := make([]byte, len(buf))
	copy(finalDigest, buf)
	return finalDigest
}
