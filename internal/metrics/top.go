package metrics

import (
	"sort"

	"github.com/wesm/listenview/internal/history"
)

// sumBy totals play time per key in first-encountered order.
// Events with an empty key are left out.
func sumBy(
	events []history.Event, key func(history.Event) string,
) Totals {
	index := make(map[string]int)
	var out Totals
	for _, e := range events {
		k := key(e)
		if k == "" {
			continue
		}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Pair[int64]{Key: k})
		}
		out[i].Value += e.MsPlayed
	}
	return out
}

// topTotals returns the n largest totals, descending; equal
// totals keep their first-encountered order.
func topTotals(totals Totals, n int) Totals {
	ranked := append(Totals(nil), totals...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value > ranked[j].Value
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func byTrack(e history.Event) string  { return e.Track }
func byArtist(e history.Event) string { return e.Artist }
func byAlbum(e history.Event) string  { return e.Album }

func topEntities(events []history.Event) TopEntities {
	return TopEntities{
		TopSongs:   topTotals(sumBy(events, byTrack), topN),
		TopArtists: topTotals(sumBy(events, byArtist), topN),
		TopAlbums:  topTotals(sumBy(events, byAlbum), topN),
	}
}

// loyaltyPie expresses the top n totals and a trailing Rest
// bucket as fractions of all play time in the slice.
func loyaltyPie(
	events []history.Event, key func(history.Event) string,
) Series {
	total := totalMs(events)
	top := topTotals(sumBy(events, key), topN)

	pie := make(Series, 0, len(top)+1)
	var covered int64
	for _, p := range top {
		covered += p.Value
		pie = append(pie, Pair[float64]{
			Key:   p.Key,
			Value: ratio(float64(p.Value), float64(total)),
		})
	}
	pie = append(pie, Pair[float64]{
		Key:   restKey,
		Value: ratio(float64(total-covered), float64(total)),
	})
	return pie
}
