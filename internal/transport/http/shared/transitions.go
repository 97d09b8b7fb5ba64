package shared

// TransitionRecorder counts completed workflow steps. A nil recorder is
// allowed everywhere it is accepted.
type TransitionRecorder interface {
	RecordTransition(entity, action string)
}

func RecordTransition(rec TransitionRecorder, entity, action string) {
	if rec == nil {
		return
	}
	rec.RecordTransition(entity, action)
}
