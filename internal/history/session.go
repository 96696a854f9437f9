package history

// AssignSessions numbers events, which must already be sorted
// by timestamp. The first event opens session 1; every event
// more than SessionGap after its predecessor opens the next.
func AssignSessions(events []Event) {
	session := 0
	for i := range events {
		if i == 0 ||
			events[i].Timestamp.Sub(events[i-1].Timestamp) > SessionGap {
			session++
		}
		events[i].SessionID = session
	}
}
