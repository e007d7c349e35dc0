package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/slot"
)

func practitionerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_practitioner_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func availabilityHandler(svc Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter is required")
			return
		}

		typ, err := slot.ParseAppointmentType(r.URL.Query().Get("type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_type", err.Error())
			return
		}

		keys, err := svc.Availability(r.Context(), id, date, typ)
		if err != nil {
			handleError(w, err)
			return
		}

		slots := make([]string, 0, len(keys))
		for _, k := range keys {
			slots = append(slots, k.String())
		}

		writeJSON(w, http.StatusOK, AvailabilityResponse{
			PractitionerID: id,
			Date:           date,
			Type:           typ.String(),
			Slots:          slots,
		})
	}
}

func createAppointmentHandler(svc Scheduler, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		typ, err := slot.ParseAppointmentType(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_type", err.Error())
			return
		}

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			PractitionerID: id,
			PatientID:      patientID,
			Start:          slot.Key(req.Start),
			Type:           typ,
		})
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt, loc))
	}
}

func dayScheduleHandler(svc Scheduler, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}

		date := r.URL.Query().Get("date")
		if date == "" {
			writeError(w, http.StatusBadRequest, "invalid_date", "date query parameter is required")
			return
		}

		appts, err := svc.DaySchedule(r.Context(), id, date)
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(id, date, appts, loc))
	}
}

func upcomingScheduleHandler(svc Scheduler, loc *time.Location) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := practitionerID(w, r)
		if !ok {
			return
		}

		appts, err := svc.UpcomingSchedule(r.Context(), id)
		if err != nil {
			handleError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toScheduleResponse(id, "", appts, loc))
	}
}

func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrPractitionerNotFound):
		writeError(w, http.StatusNotFound, "practitioner_not_found", err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidStartTime):
		writeError(w, http.StatusBadRequest, "invalid_start_time", err.Error())
	case errors.Is(err, appointment.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
	case errors.Is(err, appointment.ErrInvalidAppointmentType):
		writeError(w, http.StatusBadRequest, "invalid_appointment_type", err.Error())
	case errors.Is(err, appointment.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	case errors.Is(err, appointment.ErrScheduleBusy):
		writeError(w, http.StatusConflict, "schedule_busy", "schedule is currently being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
