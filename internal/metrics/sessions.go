package metrics

import "github.com/wesm/listenview/internal/history"

func sessions(events []history.Event) Sessions {
	// Session IDs are non-decreasing in table order, so each
	// session is a contiguous run.
	var minutes []float64
	var trackCounts []int
	for start := 0; start < len(events); {
		id := events[start].SessionID
		var ms int64
		tracks := make(map[string]bool)
		end := start
		for end < len(events) && events[end].SessionID == id {
			ms += events[end].MsPlayed
			tracks[events[end].Track] = true
			end++
		}
		minutes = append(minutes, float64(ms)/msPerMinute)
		trackCounts = append(trackCounts, len(tracks))
		start = end
	}

	s := Sessions{
		TotalSessions:          len(minutes),
		SessionLengthHistogram: histogram(minutes, sessionMinuteEdges),
	}
	if s.TotalSessions == 0 {
		return s
	}
	var sumMinutes float64
	var sumTracks int
	for i := range minutes {
		sumMinutes += minutes[i]
		sumTracks += trackCounts[i]
	}
	s.AverageSessionDurationMinutes = sumMinutes / float64(s.TotalSessions)
	s.AverageTracksPerSession = float64(sumTracks) / float64(s.TotalSessions)
	return s
}
