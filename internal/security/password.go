package security

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashCost is fixed so hashes created by registration and seeding match.
const HashCost = 11

// PasswordSymbols is the symbol set accepted by the password policy.
const PasswordSymbols = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

const PasswordPolicyMessage = "Password must be at least 8 characters long and include at least one uppercase letter, one lowercase letter, one number, and one special character."

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), HashCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a bcrypt hash with a plaintext password in constant time.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// MeetsPolicy reports whether plain satisfies the composite password policy.
func MeetsPolicy(plain string) bool {
	if len(plain) < 8 {
		return false
	}

	var upper, lower, digit, symbol bool
	for _, r := range plain {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		}
	}

	return upper && lower && digit && symbol
}
