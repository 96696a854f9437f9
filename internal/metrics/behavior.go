package metrics

import (
	"sort"

	"github.com/wesm/listenview/internal/history"
)

func behavior(events []history.Event) Behavior {
	total := totalMs(events)

	skips := 0
	playCounts := make(map[string]int)
	artists := make(map[string]bool)
	msPlayed := make([]float64, len(events))
	for i, e := range events {
		if e.MsPlayed < shortPlayMs {
			skips++
		}
		playCounts[e.Track]++
		if e.Artist != "" {
			artists[e.Artist] = true
		}
		msPlayed[i] = float64(e.MsPlayed)
	}

	var repeatMs int64
	for _, e := range events {
		if playCounts[e.Track] > 1 {
			repeatMs += e.MsPlayed
		}
	}

	return Behavior{
		SkipRate:           ratio(float64(skips), float64(len(events))),
		Loyalty:            ratio(float64(repeatMs), float64(total)),
		NewTracks:          len(playCounts),
		NewArtists:         len(artists),
		TopStreaks:         topStreaksOf(events),
		MsPlayedHistogram:  histogram(msPlayed, msPlayedEdges),
		LoyaltyPieTracks:   loyaltyPie(events, byTrack),
		LoyaltyPieArtists:  loyaltyPie(events, byArtist),
		NewArtistsPerMonth: firstSeenPerMonth(events, byArtist),
		NewTracksPerMonth:  firstSeenPerMonth(events, byTrack),
	}
}

// topStreaksOf finds, for each UTC date, the runs of equal
// track names in that day's plays ordered by ms_played
// (stable, so equal durations keep time order). It returns the
// longest runs across all dates, ties in date-then-run order.
func topStreaksOf(events []history.Event) []Streak {
	var streaks []Streak
	for start := 0; start < len(events); {
		end := start
		for end < len(events) && events[end].Date == events[start].Date {
			end++
		}
		streaks = append(streaks, dayStreaks(events[start:end])...)
		start = end
	}

	sort.SliceStable(streaks, func(i, j int) bool {
		return streaks[i].Streak > streaks[j].Streak
	})
	if len(streaks) > topStreaks {
		streaks = streaks[:topStreaks]
	}
	return streaks
}

// dayStreaks splits one day's plays into maximal runs.
func dayStreaks(day []history.Event) []Streak {
	ordered := append([]history.Event(nil), day...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MsPlayed < ordered[j].MsPlayed
	})

	var out []Streak
	for i := 0; i < len(ordered); {
		j := i
		for j < len(ordered) && ordered[j].Track == ordered[i].Track {
			j++
		}
		out = append(out, Streak{
			Date:   ordered[i].Date,
			Track:  ordered[i].Track,
			Streak: j - i,
		})
		i = j
	}
	return out
}

// firstSeenPerMonth counts, per month, the keys whose first
// appearance falls in that month. Months with no first
// appearances are absent.
func firstSeenPerMonth(
	events []history.Event, key func(history.Event) string,
) Counts {
	seen := make(map[string]bool)
	perMonth := make(map[string]int)
	for _, e := range events {
		k := key(e)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		perMonth[e.Month]++
	}

	months := make([]string, 0, len(perMonth))
	for m := range perMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make(Counts, len(months))
	for i, m := range months {
		out[i] = Pair[int]{Key: m, Value: perMonth[m]}
	}
	return out
}
