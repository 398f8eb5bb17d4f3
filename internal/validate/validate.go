// Package validate checks required fields before any downstream call is
// made. Validation is purely structural (presence / non-empty); it never
// applies cross-field business rules.
package validate

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	// Report field names as their json tag so validation messages match
	// the wire shape the caller sent.
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Struct validates a typed request body. On failure it returns
// *domain.ErrValidation carrying every offending field, not just the first.
func Struct(req any) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &domain.ErrValidation{Fields: fields}
}

// tissRequired declares the fixed required-field set per TISS create
// operation. Keys are "<resource>.create".
var tissRequired = map[string][]string{
	"guias.create":         {"doctor_id", "tipo_guia", "data_atendimento"},
	"lotes.create":         {"doctor_id", "operadora_id", "guia_ids"},
	"beneficiarios.create": {"operadora_id", "nome", "numero_carteira"},
	"financeiro.create":    {"doctor_id", "tipo", "valor"},
}

// RequiredFields returns the declared required set for an operation, or
// nil when the operation has no declaration (pass-through).
func RequiredFields(operation string) []string {
	return tissRequired[operation]
}

// Required checks a free-form JSON payload against the operation's
// declared field set. Missing means absent, empty string, or empty array.
// Unknown extra fields never cause a rejection.
func Required(operation string, payload map[string]any) error {
	required := tissRequired[operation]
	if len(required) == 0 {
		return nil
	}

	var missing []string
	for _, field := range required {
		if !present(payload[field]) {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &domain.ErrValidation{Fields: missing}
	}
	return nil
}

func present(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []any:
		return len(x) > 0
	default:
		return true
	}
}
