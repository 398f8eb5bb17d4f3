package domain

import "time"

// Appointment is the normalized view of a downstream appointment record.
type Appointment struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patientId,omitempty"`
	PatientName string    `json:"patientName,omitempty"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status,omitempty"`
	Type        string    `json:"type,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

// AppointmentsRequest filters by exact calendar date, inclusive range and
// status. Date fields use the "2006-01-02" layout.
type AppointmentsRequest struct {
	DoctorID  string `json:"doctorId" validate:"required"`
	PatientID string `json:"patientId,omitempty"`
	Date      string `json:"date,omitempty"`
	StartDate string `json:"startDate,omitempty"`
	EndDate   string `json:"endDate,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// AppointmentsResult is always sorted descending by appointment date.
type AppointmentsResult struct {
	Appointments []Appointment `json:"appointments"`
	Total        int           `json:"total"`
}
