package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	Start     string `json:"start"`
	Type      string `json:"type"`
}

type AppointmentResponse struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	PatientName    string    `json:"patient_name"`
	Start          string    `json:"start"`
	End            time.Time `json:"end"`
	Type           string    `json:"type"`
	CreatedAt      time.Time `json:"created_at"`
}

type AvailabilityResponse struct {
	PractitionerID uuid.UUID `json:"practitioner_id"`
	Date           string    `json:"date"`
	Type           string    `json:"type"`
	Slots          []string  `json:"slots"`
}

type ScheduleResponse struct {
	PractitionerID uuid.UUID             `json:"practitioner_id"`
	Date           string                `json:"date,omitempty"`
	Appointments   []AppointmentResponse `json:"appointments"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a appointment.Appointment, loc *time.Location) AppointmentResponse {
	resp := AppointmentResponse{
		ID:             a.ID,
		PractitionerID: a.PractitionerID,
		PatientID:      a.Patient.ID,
		PatientName:    a.Patient.Name(),
		Start:          a.Start.String(),
		Type:           a.Type.String(),
		CreatedAt:      a.CreatedAt,
	}
	if end, err := a.End(loc); err == nil {
		resp.End = end
	}
	return resp
}

func toScheduleResponse(practitionerID uuid.UUID, date string, appts []appointment.Appointment, loc *time.Location) ScheduleResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a, loc))
	}
	return ScheduleResponse{PractitionerID: practitionerID, Date: date, Appointments: out}
}
