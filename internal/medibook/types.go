package medibook

import "time"

// Appointment is one scheduling record as reported by the MediBook API.
// Status is MediBook's numeric workflow code (23 = patient ready).
type Appointment struct {
	ID        string    `json:"id"`
	Status    int       `json:"status"`
	PatientID string    `json:"patient_id"`
	Provider  string    `json:"provider,omitempty"`
	StartsAt  time.Time `json:"starts_at"`
}

// Patient carries the fields needed to enrich a notification.
type Patient struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type appointmentList struct {
	Appointments []Appointment `json:"appointments"`
}
