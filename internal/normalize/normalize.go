// Package normalize reshapes downstream payloads for the UI: field-name
// precedence mapping, PII masking, phone matching and status mapping.
// Everything here is a pure function over request-scoped values.
package normalize

import (
	"strings"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

// Digits strips everything but 0-9 from s.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

// PhoneMatch reports whether two phone numbers refer to the same line.
// Comparison is digits-only and suffix-based in either direction, so a
// stored "5511999998888" matches a query "11999998888" and vice versa.
func PhoneMatch(a, b string) bool {
	da, db := Digits(a), Digits(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	return strings.HasSuffix(da, db) || strings.HasSuffix(db, da)
}

// MaskPhone keeps a fixed 4-digit visible prefix and replaces the rest
// with the mask marker. Display-only; never reversible.
func MaskPhone(phone string) string {
	d := Digits(phone)
	if d == "" {
		return ""
	}
	if len(d) <= 4 {
		return "***"
	}
	return d[:4] + "***"
}

// MaskCPF shows only the last 4 characters of a CPF.
func MaskCPF(cpf string) string {
	d := Digits(cpf)
	if d == "" {
		return ""
	}
	if len(d) <= 4 {
		return "***"
	}
	return "***" + d[len(d)-4:]
}

// MapSessionStatus maps an arbitrary gateway status string onto the fixed
// session enum. Matching is case-insensitive; anything unrecognized or
// absent is disconnected.
func MapSessionStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "connected", "open", "ready", "authenticated":
		return domain.SessionConnected
	case "qr", "qrcode", "qr_code", "scan":
		return domain.SessionQR
	case "connecting", "loading", "starting", "pairing":
		return domain.SessionConnecting
	case "error", "failed", "conflict":
		return domain.SessionError
	default:
		return domain.SessionDisconnected
	}
}

// stringField returns the first non-empty string value among the given
// keys. This is the documented precedence order for duck-typed downstream
// records (e.g. "name" wins over "nome").
func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// Patient maps a raw doctor-server record onto the masked Patient view.
// Precedence per field: id > _id; name > nome; phone > telefone > celular;
// cpf > documento; email.
func Patient(raw map[string]any) domain.Patient {
	return domain.Patient{
		ID:       stringField(raw, "id", "_id"),
		Name:     stringField(raw, "name", "nome"),
		Phone:    MaskPhone(stringField(raw, "phone", "telefone", "celular")),
		CPF:      MaskCPF(stringField(raw, "cpf", "documento")),
		Email:    stringField(raw, "email"),
		DoctorID: stringField(raw, "doctorId", "doctor_id"),
	}
}

// RawPhone extracts the unmasked phone from a raw record using the same
// precedence as Patient. Used for matching before masking is applied.
func RawPhone(raw map[string]any) string {
	return stringField(raw, "phone", "telefone", "celular")
}

// RawID extracts the record identifier.
func RawID(raw map[string]any) string {
	return stringField(raw, "id", "_id")
}
