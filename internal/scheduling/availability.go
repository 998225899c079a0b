package scheduling

// coveredByShift reports whether one stored slot fully contains the
// requested window. Coverage must come from a single contiguous slot:
// a window spanning two adjacent slots is not covered even when their
// union would cover it.
func coveredByShift(slots []AvailabilitySlot, window ClockRange) bool {
	for _, slot := range slots {
		if slot.Window.Contains(window) {
			return true
		}
	}
	return false
}

// overlapsExisting reports whether the candidate window overlaps any
// stored slot. Callers pass slots already bucketed to one weekday; there
// is no cross-day overlap concept.
func overlapsExisting(slots []AvailabilitySlot, window ClockRange) bool {
	for _, slot := range slots {
		if slot.Window.Overlaps(window) {
			return true
		}
	}
	return false
}

// hasOverlap reports whether the candidate interval collides with any of
// the given appointments. Cancelled rows must already be excluded by the
// caller's query.
func hasOverlap(appts []Appointment, iv Interval) bool {
	for _, a := range appts {
		if a.Interval().Overlaps(iv) {
			return true
		}
	}
	return false
}
