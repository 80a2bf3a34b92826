package booking

import "errors"

// Typed rejection reasons surfaced to the API layer. Repository
// implementations wrap these so the orchestrator can classify storage
// outcomes with errors.Is; everything else propagates unchanged.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSchedulingConflict  = errors.New("conflicting appointment")
	ErrInvalidSlotDuration = errors.New("slot duration must be a positive number of minutes")
	ErrNotActive           = errors.New("appointment is not active")
	ErrEmptyPatch          = errors.New("no fields to update")
)
