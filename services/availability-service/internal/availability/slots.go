package availability

// GenerateSlots returns the slot starts start, start+30m, ... that are strictly before end.
// It returns nil when start >= end.
func GenerateSlots(start, end TimeOfDay) []TimeOfDay {
	if start >= end {
		return nil
	}
	slots := make([]TimeOfDay, 0, (int(end-start)+SlotSeconds-1)/SlotSeconds)
	for t := start; t < end; t += SlotSeconds {
		slots = append(slots, t)
	}
	return slots
}
