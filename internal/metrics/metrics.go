// Package metrics computes the dashboard metrics bundle over a
// slice of the event table. Every function here is a pure
// function of its input slice.
package metrics

import (
	"errors"
	"log"
	"time"

	"github.com/wesm/listenview/internal/history"
)

// ErrNoData signals a query window with no events. It is a
// normal outcome, not a failure.
var ErrNoData = errors.New("no data in this timeframe")

// DefaultTimezone is the analysis timezone for hour-of-day
// and weekday buckets.
const DefaultTimezone = "Asia/Kolkata"

const (
	msPerHour   = 3_600_000
	msPerMinute = 60_000

	shortPlayMs = 30_000
	topN        = 10
	topStreaks  = 5
	restKey     = "Rest"
)

// Series maps labels to fractional values in a fixed order.
type Series = Ordered[float64]

// Totals maps labels to summed milliseconds in a fixed order.
type Totals = Ordered[int64]

// Counts maps labels to counts in a fixed order.
type Counts = Ordered[int]

// Bundle is the full metrics response.
type Bundle struct {
	Section1 TopEntities `json:"section1"`
	Section2 Temporal    `json:"section2"`
	Section3 Behavior    `json:"section3"`
	Section4 Platforms   `json:"section4"`
	Section5 Sessions    `json:"section5"`
}

// TopEntities ranks tracks, artists and albums by play time.
type TopEntities struct {
	TopSongs   Totals `json:"top_songs"`
	TopArtists Totals `json:"top_artists"`
	TopAlbums  Totals `json:"top_albums"`
}

// Temporal holds the time-bucketed aggregates.
type Temporal struct {
	WeeklyHours    Series `json:"weekly_hours"`
	MonthlyHours   Series `json:"monthly_hours"`
	HourMinutes    Series `json:"hour_minutes"`
	WeekdayMinutes Series `json:"weekday_minutes"`
}

// Behavior holds the listening-habit indices.
type Behavior struct {
	SkipRate           float64  `json:"skip_rate"`
	Loyalty            float64  `json:"loyalty"`
	NewTracks          int      `json:"new_tracks"`
	NewArtists         int      `json:"new_artists"`
	TopStreaks         []Streak `json:"top_streaks"`
	MsPlayedHistogram  Counts   `json:"ms_played_histogram"`
	LoyaltyPieTracks   Series   `json:"loyalty_pie_tracks"`
	LoyaltyPieArtists  Series   `json:"loyalty_pie_artists"`
	NewArtistsPerMonth Counts   `json:"new_artists_per_month"`
	NewTracksPerMonth  Counts   `json:"new_tracks_per_month"`
}

// Streak is a run of consecutive plays of one track within a
// day's duration-ordered plays.
type Streak struct {
	Date   string `json:"date"`
	Track  string `json:"track"`
	Streak int    `json:"streak"`
}

// Platforms breaks play time down by platform.
type Platforms struct {
	PlatformPercent  Series                        `json:"platform_percent"`
	PlatformOverTime map[string]map[string]float64 `json:"platform_over_time"`
}

// Sessions summarizes listening sessions.
type Sessions struct {
	TotalSessions                 int     `json:"total_sessions"`
	AverageSessionDurationMinutes float64 `json:"average_session_duration_minutes"`
	SessionLengthHistogram        Counts  `json:"session_length_histogram"`
	AverageTracksPerSession       float64 `json:"average_tracks_per_session"`
}

// Options configures an Engine.
type Options struct {
	// Location buckets hour-of-day and weekday metrics.
	// Nil means DefaultTimezone.
	Location *time.Location
}

// Engine computes bundles. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	loc *time.Location
}

// New creates an Engine.
func New(opts Options) *Engine {
	loc := opts.Location
	if loc == nil {
		loc = DefaultLocation()
	}
	return &Engine{loc: loc}
}

// DefaultLocation loads DefaultTimezone, falling back to its
// fixed +05:30 offset when tzdata is unavailable.
func DefaultLocation() *time.Location {
	loc, err := time.LoadLocation(DefaultTimezone)
	if err != nil {
		log.Printf("metrics: loading %s: %v", DefaultTimezone, err)
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// Location returns the analysis timezone.
func (e *Engine) Location() *time.Location { return e.loc }

// Compute builds the bundle for an already-sliced table.
// An empty table returns ErrNoData.
func (e *Engine) Compute(tbl *history.Table) (*Bundle, error) {
	if tbl.Empty() {
		return nil, ErrNoData
	}
	events := tbl.Events()
	return &Bundle{
		Section1: topEntities(events),
		Section2: temporal(events, e.loc),
		Section3: behavior(events),
		Section4: platforms(events),
		Section5: sessions(events),
	}, nil
}

func totalMs(events []history.Event) int64 {
	var total int64
	for _, e := range events {
		total += e.MsPlayed
	}
	return total
}

// ratio divides, returning 0 for a zero denominator.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
