package service

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/medassist/clinic-bfa-go/internal/normalize"
)

// Graph user_data keys sent as-is, never hashed.
var plaintextUserDataKeys = map[string]bool{
	"client_ip_address": true,
	"client_user_agent": true,
	"fbc":               true,
	"fbp":               true,
}

// HashUserData returns a copy of the user data map with every PII field
// SHA-256 hashed after normalization. Hashing is idempotent in effect:
// the same input always yields the same digest.
func HashUserData(userData map[string]string) map[string]string {
	if len(userData) == 0 {
		return nil
	}
	out := make(map[string]string, len(userData))
	for key, value := range userData {
		if value == "" {
			continue
		}
		if plaintextUserDataKeys[key] {
			out[key] = value
			continue
		}
		out[key] = hashField(key, value)
	}
	return out
}

func hashField(key, value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if key == "ph" || key == "phone" {
		v = NormalizePhoneForHash(v)
	}
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}

// NormalizePhoneForHash strips formatting and forces the Brazilian country
// code before hashing: digits only, "55" prepended when absent, "+" prefix.
func NormalizePhoneForHash(phone string) string {
	digits := normalize.Digits(phone)
	if digits == "" {
		return ""
	}
	if !strings.HasPrefix(digits, "55") {
		digits = "55" + digits
	}
	return "+" + digits
}
