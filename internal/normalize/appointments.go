package normalize

import (
	"sort"
	"time"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

// dayLayout is the calendar-day layout used by all date filters.
const dayLayout = "2006-01-02"

// appointment date/time layouts tried in order. Parsing is timezone-naive
// on purpose: filters compare calendar days, not instants.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	dayLayout,
}

// ParseWhen parses a downstream date/time string. Returns the zero time
// when nothing matches.
func ParseWhen(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Appointment maps a raw doctor-server record onto the normalized view.
// Date precedence: date > data > dateTime > data_hora.
func Appointment(raw map[string]any) domain.Appointment {
	return domain.Appointment{
		ID:          stringField(raw, "id", "_id"),
		PatientID:   stringField(raw, "patientId", "patient_id", "paciente_id"),
		PatientName: stringField(raw, "patientName", "paciente", "nome"),
		Date:        ParseWhen(stringField(raw, "date", "data", "dateTime", "data_hora")),
		Status:      stringField(raw, "status"),
		Type:        stringField(raw, "type", "tipo"),
		Notes:       stringField(raw, "notes", "observacoes"),
	}
}

// FilterAppointments applies exact-date, inclusive-range and status
// filters, then sorts descending by date/time. Date filters match on the
// calendar-day component regardless of time of day.
func FilterAppointments(list []domain.Appointment, date, startDate, endDate, status string) []domain.Appointment {
	out := make([]domain.Appointment, 0, len(list))
	for _, a := range list {
		day := a.Date.Format(dayLayout)
		if date != "" && day != date {
			continue
		}
		if startDate != "" && day < startDate {
			continue
		}
		if endDate != "" && day > endDate {
			continue
		}
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
