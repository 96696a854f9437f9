package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/wesm/listenview/internal/history"
)

type isoWeek struct{ year, week int }

func temporal(events []history.Event, loc *time.Location) Temporal {
	weekly := make(map[isoWeek]int64)
	monthly := make(map[string]int64)
	hourly := make(map[int]int64)
	weekday := make(map[string]int64)

	for _, e := range events {
		y, w := e.Timestamp.ISOWeek()
		weekly[isoWeek{y, w}] += e.MsPlayed
		monthly[e.Month] += e.MsPlayed

		local := e.Timestamp.In(loc)
		hourly[local.Hour()] += e.MsPlayed
		weekday[local.Weekday().String()] += e.MsPlayed
	}

	weeks := make([]isoWeek, 0, len(weekly))
	for k := range weekly {
		weeks = append(weeks, k)
	}
	sort.Slice(weeks, func(i, j int) bool {
		if weeks[i].year != weeks[j].year {
			return weeks[i].year < weeks[j].year
		}
		return weeks[i].week < weeks[j].week
	})
	weeklyHours := make(Series, len(weeks))
	for i, k := range weeks {
		weeklyHours[i] = Pair[float64]{
			Key:   fmt.Sprintf("%d-W%d", k.year, k.week),
			Value: float64(weekly[k]) / msPerHour,
		}
	}

	hours := make([]int, 0, len(hourly))
	for h := range hourly {
		hours = append(hours, h)
	}
	sort.Ints(hours)
	hourMinutes := make(Series, len(hours))
	for i, h := range hours {
		hourMinutes[i] = Pair[float64]{
			Key:   strconv.Itoa(h),
			Value: float64(hourly[h]) / msPerMinute,
		}
	}

	return Temporal{
		WeeklyHours:    weeklyHours,
		MonthlyHours:   sortedSeries(monthly, msPerHour),
		HourMinutes:    hourMinutes,
		WeekdayMinutes: sortedSeries(weekday, msPerMinute),
	}
}

// sortedSeries orders a string-keyed total by key and scales
// each value by 1/unit.
func sortedSeries(m map[string]int64, unit float64) Series {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Series, len(keys))
	for i, k := range keys {
		out[i] = Pair[float64]{Key: k, Value: float64(m[k]) / unit}
	}
	return out
}
