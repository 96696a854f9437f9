package history

import (
	"log"
	"slices"
	"sort"

	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/timeutil"
)

// NormalizeStats counts the rows dropped during
// normalization. Dropped rows never fail a build.
type NormalizeStats struct {
	Input        int
	BadTimestamp int
	EmptyTrack   int
	// UnknownPlatforms lists distinct non-empty platform
	// strings that classified as other, in first-seen order.
	UnknownPlatforms []string
}

// Kept returns the number of rows that survived.
func (s NormalizeStats) Kept() int {
	return s.Input - s.BadTimestamp - s.EmptyTrack
}

// Normalize projects records onto the event columns, drops
// rows with an unparseable timestamp or an empty track name,
// and returns the survivors stably sorted by timestamp.
// Session IDs are left zero.
func Normalize(records []parser.Record) ([]Event, NormalizeStats) {
	stats := NormalizeStats{Input: len(records)}
	events := make([]Event, 0, len(records))
	rawPlatforms := make([]string, 0, len(records))

	for _, r := range records {
		tsRaw, ok := r.String(parser.FieldTimestamp)
		if !ok {
			stats.BadTimestamp++
			continue
		}
		ts, err := timeutil.Parse(tsRaw)
		if err != nil {
			stats.BadTimestamp++
			continue
		}

		e := Event{Timestamp: ts}
		e.Username, _ = r.String(parser.FieldUsername)
		e.Country, _ = r.String(parser.FieldCountry)
		e.IP, _ = r.String(parser.FieldIP)
		e.UserAgent, _ = r.String(parser.FieldUserAgent)
		e.Track, _ = r.String(parser.FieldTrack)
		e.Artist, _ = r.String(parser.FieldArtist)
		e.Album, _ = r.String(parser.FieldAlbum)
		if ms, ok := r.Int(parser.FieldMsPlayed); ok && ms > 0 {
			e.MsPlayed = ms
		}
		e.derive()

		platform, _ := r.String(parser.FieldPlatform)
		events = append(events, e)
		rawPlatforms = append(rawPlatforms, platform)
	}

	order := make([]int, len(events))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return events[order[a]].Timestamp.Before(
			events[order[b]].Timestamp,
		)
	})

	seenUnknown := make(map[string]bool)
	out := make([]Event, 0, len(events))
	for _, idx := range order {
		e := events[idx]
		if e.Track == "" {
			stats.EmptyTrack++
			continue
		}
		raw := rawPlatforms[idx]
		e.Platform = parser.NormalizePlatform(raw)
		if e.Platform == parser.PlatformOther && raw != "" &&
			!seenUnknown[raw] {
			seenUnknown[raw] = true
			stats.UnknownPlatforms = append(
				stats.UnknownPlatforms, raw,
			)
		}
		out = append(out, e)
	}
	return slices.Clip(out), stats
}

func logNormalizeStats(stats NormalizeStats) {
	if dropped := stats.Input - stats.Kept(); dropped > 0 {
		log.Printf(
			"normalize: dropped %d of %d rows"+
				" (%d bad timestamp, %d empty track)",
			dropped, stats.Input,
			stats.BadTimestamp, stats.EmptyTrack,
		)
	}
	for _, p := range stats.UnknownPlatforms {
		log.Printf("normalize: unrecognized platform %q", p)
	}
}
