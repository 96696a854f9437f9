package metrics

import (
	"sort"

	"github.com/wesm/listenview/internal/history"
)

func platforms(events []history.Event) Platforms {
	total := totalMs(events)
	perPlatform := make(map[string]int64)
	perMonth := make(map[string]map[string]int64)
	for _, e := range events {
		p := string(e.Platform)
		perPlatform[p] += e.MsPlayed
		m := perMonth[e.Month]
		if m == nil {
			m = make(map[string]int64)
			perMonth[e.Month] = m
		}
		m[p] += e.MsPlayed
	}

	names := make([]string, 0, len(perPlatform))
	for p := range perPlatform {
		names = append(names, p)
	}
	sort.Strings(names)

	percent := make(Series, len(names))
	for i, p := range names {
		percent[i] = Pair[float64]{
			Key:   p,
			Value: ratio(float64(perPlatform[p]), float64(total)),
		}
	}

	// Every month lists every platform seen in the slice.
	overTime := make(map[string]map[string]float64, len(perMonth))
	for month, sums := range perMonth {
		row := make(map[string]float64, len(names))
		for _, p := range names {
			row[p] = float64(sums[p]) / msPerHour
		}
		overTime[month] = row
	}

	return Platforms{
		PlatformPercent:  percent,
		PlatformOverTime: overTime,
	}
}
