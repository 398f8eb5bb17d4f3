package domain

// Patient is the normalized, PII-masked projection returned to the UI.
// Phone and CPF are display-only masks, never the raw values.
type Patient struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone,omitempty"`
	CPF      string `json:"cpf,omitempty"`
	Email    string `json:"email,omitempty"`
	DoctorID string `json:"doctorId,omitempty"`
}

// PatientLookupRequest selects a patient by ID or by phone (digit-suffix match).
type PatientLookupRequest struct {
	DoctorID  string `json:"doctorId" validate:"required"`
	PatientID string `json:"patientId,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// PatientLookupResult never errors on a miss; Found=false with a nil patient
// is the normal "no match" answer.
type PatientLookupResult struct {
	Found   bool     `json:"found"`
	Patient *Patient `json:"patient"`
}
