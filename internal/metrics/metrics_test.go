package metrics

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/listenview/internal/history"
	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/testjsonl"
)

func TestComputeEmpty(t *testing.T) {
	_, err := utcEngine().Compute(history.NewTable(nil))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestComputeEmptySlice(t *testing.T) {
	tbl := buildTable(t, play(at(0), "A", "X", 1000))
	r, err := history.ParseRange("2020-01-01", "2020-01-31")
	require.NoError(t, err)
	_, err = utcEngine().Compute(tbl.Slice(r))
	assert.ErrorIs(t, err, ErrNoData)
}

func TestComputeRepeatedTrackScenario(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 200000),
		play(at(10*time.Minute), "A", "X", 200000),
		play(at(41*time.Minute), "A", "X", 200000),
	)
	b := mustCompute(t, utcEngine(), tbl)

	assert.Equal(t, 2, b.Section5.TotalSessions)
	assert.Equal(t, 0.0, b.Section3.SkipRate)
	assert.Equal(t, 1, b.Section3.NewTracks)
	assert.Equal(t, 1, b.Section3.NewArtists)
	assert.Equal(t, 1.0, b.Section3.Loyalty)

	// Sessions: 400000ms and 200000ms.
	assert.InDelta(t, 5.0, b.Section5.AverageSessionDurationMinutes, 1e-9)
	assert.Equal(t, 1.0, b.Section5.AverageTracksPerSession)
	hist := b.Section5.SessionLengthHistogram
	v, _ := hist.Get("(0, 5]")
	assert.Equal(t, 1, v)
	v, _ = hist.Get("(5, 10]")
	assert.Equal(t, 1, v)
}

func TestComputeMonthBoundary(t *testing.T) {
	tbl := buildTable(t,
		play("2024-01-31T23:00:00Z", "A", "X", 3_600_000),
		play("2024-02-01T01:00:00Z", "B", "Y", 1_800_000),
	)
	b := mustCompute(t, utcEngine(), tbl)

	assert.Equal(t, Series{{"2024-01", 1.0}, {"2024-02", 0.5}}, b.Section2.MonthlyHours)
	assert.Equal(t, 2, b.Section5.TotalSessions)
}

func TestComputeIsIdempotent(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 200000),
		play(at(time.Minute), "B", "X", 1000),
		play(at(2*time.Hour), "C", "Y", 45000),
		play(at(26*time.Hour), "A", "X", 90000),
	)
	e := New(Options{})
	first := mustCompute(t, e, tbl)
	second := mustCompute(t, e, tbl)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("bundles differ (-first +second):\n%s", diff)
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestTopEntitiesRanking(t *testing.T) {
	var plays []testjsonl.Play
	// Twelve tracks with distinct totals, plus a tie between
	// "tie-first" and "tie-second" that must keep encounter
	// order.
	for i := range 12 {
		plays = append(plays, play(
			at(time.Duration(i)*time.Minute),
			fmt.Sprintf("t%02d", i), "X", int64(1000*(i+1)),
		))
	}
	plays = append(plays,
		play(at(20*time.Minute), "tie-first", "Y", 500000),
		play(at(21*time.Minute), "tie-second", "Y", 500000),
	)
	b := mustCompute(t, utcEngine(), buildTable(t, plays...))

	songs := b.Section1.TopSongs
	require.Len(t, songs, 10)
	assert.Equal(t, []string{
		"tie-first", "tie-second", "t11", "t10", "t09",
		"t08", "t07", "t06", "t05", "t04",
	}, songs.Keys())
	assert.Equal(t, int64(500000), songs[0].Value)

	assert.Equal(t, []string{"Y", "X"}, b.Section1.TopArtists.Keys())
	assert.Equal(t, []string{"album Y", "album X"}, b.Section1.TopAlbums.Keys())
}

func TestTopEntitiesSkipMissingArtist(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "", 1000),
		play(at(time.Minute), "B", "X", 500),
	)
	b := mustCompute(t, utcEngine(), tbl)
	assert.Equal(t, []string{"X"}, b.Section1.TopArtists.Keys())
	assert.Equal(t, 1, b.Section3.NewArtists)

	pie := b.Section3.LoyaltyPieArtists
	rest, ok := pie.Get(restKey)
	require.True(t, ok)
	assert.InDelta(t, 1000.0/1500.0, rest, 1e-12)
}

// Blank and null artist or album names are both treated as
// missing: they form no group and count toward Rest.
func TestTopEntitiesBlankNamesAreMissing(t *testing.T) {
	data := testjsonl.JoinJSONL(
		`{"ts":"2024-01-15T10:00:00Z","ms_played":1000,"master_metadata_track_name":"A","master_metadata_album_artist_name":"","master_metadata_album_album_name":""}`,
		`{"ts":"2024-01-15T10:01:00Z","ms_played":2000,"master_metadata_track_name":"B","master_metadata_album_artist_name":null,"master_metadata_album_album_name":null}`,
		`{"ts":"2024-01-15T10:02:00Z","ms_played":500,"master_metadata_track_name":"C","master_metadata_album_artist_name":"X","master_metadata_album_album_name":"P"}`,
	)
	records, err := parser.ParseFile([]byte(data))
	require.NoError(t, err)
	b := mustCompute(t, utcEngine(), history.Build(records))

	assert.Equal(t, Totals{{"X", 500}}, b.Section1.TopArtists)
	assert.Equal(t, Totals{{"P", 500}}, b.Section1.TopAlbums)
	assert.Equal(t, 1, b.Section3.NewArtists)

	rest, ok := b.Section3.LoyaltyPieArtists.Get(restKey)
	require.True(t, ok)
	assert.InDelta(t, 3000.0/3500.0, rest, 1e-12)
}

func TestTemporalBuckets(t *testing.T) {
	tbl := buildTable(t,
		// Monday 2024-01-01 20:00 UTC is Tuesday 01:30 in Kolkata.
		play("2024-01-01T20:00:00Z", "A", "X", 120000),
		play("2024-01-01T20:10:00Z", "B", "X", 60000),
		// ISO week 1 of 2025 starts on Monday 2024-12-30.
		play("2024-12-30T09:00:00Z", "C", "X", 3_600_000),
		play("2024-03-04T09:00:00Z", "D", "X", 1_800_000),
	)
	b := mustCompute(t, New(Options{}), tbl)

	assert.Equal(t, []string{"2024-W1", "2024-W10", "2025-W1"}, b.Section2.WeeklyHours.Keys())
	w, _ := b.Section2.WeeklyHours.Get("2024-W1")
	assert.InDelta(t, 0.05, w, 1e-12)

	assert.Equal(t, []string{"2024-01", "2024-03", "2024-12"}, b.Section2.MonthlyHours.Keys())

	// 09:00 UTC is 14:30 IST; 20:00/20:10 UTC are 01:30/01:40 IST.
	assert.Equal(t, Series{{"1", 3.0}, {"14", 90.0}}, b.Section2.HourMinutes)
	assert.Equal(t, Series{{"Monday", 90.0}, {"Tuesday", 3.0}}, b.Section2.WeekdayMinutes)
}

func TestTemporalUTCEngine(t *testing.T) {
	tbl := buildTable(t, play("2024-01-01T20:00:00Z", "A", "X", 60000))
	b := mustCompute(t, utcEngine(), tbl)
	assert.Equal(t, Series{{"20", 1.0}}, b.Section2.HourMinutes)
	assert.Equal(t, Series{{"Monday", 1.0}}, b.Section2.WeekdayMinutes)
}

func TestSkipRateAndLoyalty(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 10000),
		play(at(time.Minute), "A", "X", 20000),
		play(at(2*time.Minute), "B", "X", 29999),
		play(at(3*time.Minute), "C", "X", 30000),
	)
	b := mustCompute(t, utcEngine(), tbl)
	assert.Equal(t, 0.75, b.Section3.SkipRate)
	assert.InDelta(t, 30000.0/89999.0, b.Section3.Loyalty, 1e-12)
	assert.Equal(t, 3, b.Section3.NewTracks)
}

func TestLoyaltyZeroPlaytime(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 0),
		play(at(time.Minute), "A", "X", 0),
	)
	b := mustCompute(t, utcEngine(), tbl)
	assert.Equal(t, 0.0, b.Section3.Loyalty)
	for _, p := range b.Section3.LoyaltyPieTracks {
		assert.Equal(t, 0.0, p.Value, p.Key)
	}
	for _, p := range b.Section4.PlatformPercent {
		assert.Equal(t, 0.0, p.Value, p.Key)
	}
}

func TestMsPlayedHistogram(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 45000),
		play(at(time.Minute), "B", "X", 0),
		play(at(2*time.Minute), "C", "X", 10000),
		play(at(3*time.Minute), "D", "X", 10001),
		play(at(4*time.Minute), "E", "X", 1_800_000),
		play(at(5*time.Minute), "F", "X", 1_800_001),
	)
	b := mustCompute(t, utcEngine(), tbl)
	hist := b.Section3.MsPlayedHistogram

	require.Len(t, hist, len(msPlayedEdges)-1)
	assert.Equal(t, "(0, 10000]", hist[0].Key)
	assert.Equal(t, "(600000, 1800000]", hist[len(hist)-1].Key)

	want := map[string]int{
		"(0, 10000]":        1,
		"(10000, 20000]":    1,
		"(40000, 50000]":    1,
		"(600000, 1800000]": 1,
	}
	for _, p := range hist {
		assert.Equal(t, want[p.Key], p.Value, p.Key)
	}
	// Zero and above-range plays fall in no bin.
	assert.Equal(t, tbl.Len()-2, countTotal(hist))
}

func TestTopStreaks(t *testing.T) {
	tbl := buildTable(t,
		// Day one, ordered by duration: X X Y X.
		play("2024-02-01T08:00:00Z", "X", "a", 1000),
		play("2024-02-01T08:01:00Z", "Y", "a", 2000),
		play("2024-02-01T08:02:00Z", "X", "a", 1000),
		play("2024-02-01T08:03:00Z", "X", "a", 3000),
		// Day two: Z Z Z.
		play("2024-02-02T08:00:00Z", "Z", "a", 5000),
		play("2024-02-02T08:01:00Z", "Z", "a", 5000),
		play("2024-02-02T08:02:00Z", "Z", "a", 5000),
		// Day three: W then V, both single runs.
		play("2024-02-03T08:00:00Z", "W", "a", 100),
		play("2024-02-03T08:01:00Z", "V", "a", 200),
	)
	b := mustCompute(t, utcEngine(), tbl)

	assert.Equal(t, []Streak{
		{Date: "2024-02-02", Track: "Z", Streak: 3},
		{Date: "2024-02-01", Track: "X", Streak: 2},
		{Date: "2024-02-01", Track: "Y", Streak: 1},
		{Date: "2024-02-01", Track: "X", Streak: 1},
		{Date: "2024-02-03", Track: "W", Streak: 1},
	}, b.Section3.TopStreaks)
}

func TestLoyaltyPie(t *testing.T) {
	var plays []testjsonl.Play
	for i := range 12 {
		plays = append(plays, play(
			at(time.Duration(i)*time.Minute),
			fmt.Sprintf("t%02d", i), fmt.Sprintf("a%02d", i%3), 1000,
		))
	}
	b := mustCompute(t, utcEngine(), buildTable(t, plays...))

	tracks := b.Section3.LoyaltyPieTracks
	require.Len(t, tracks, 11)
	assert.Equal(t, restKey, tracks[10].Key)
	assert.InDelta(t, 2.0/12.0, tracks[10].Value, 1e-12)
	sum := 0.0
	for _, p := range tracks {
		sum += p.Value
	}
	assert.InDelta(t, 1.0, sum, 1e-12)

	artists := b.Section3.LoyaltyPieArtists
	assert.Equal(t, []string{"a00", "a01", "a02", restKey}, artists.Keys())
	rest, _ := artists.Get(restKey)
	assert.Equal(t, 0.0, rest)
}

func TestFirstSeenPerMonth(t *testing.T) {
	tbl := buildTable(t,
		play("2024-01-05T10:00:00Z", "A", "X", 1000),
		play("2024-01-06T10:00:00Z", "B", "X", 1000),
		play("2024-02-05T10:00:00Z", "A", "Y", 1000),
		play("2024-04-05T10:00:00Z", "C", "X", 1000),
	)
	b := mustCompute(t, utcEngine(), tbl)
	assert.Equal(t, Counts{{"2024-01", 2}, {"2024-04", 1}}, b.Section3.NewTracksPerMonth)
	assert.Equal(t, Counts{{"2024-01", 1}, {"2024-02", 1}}, b.Section3.NewArtistsPerMonth)
}

func TestPlatformBreakdown(t *testing.T) {
	ios := play("2024-02-10T10:00:00Z", "B", "X", 3_600_000)
	ios.Platform = "iOS 17"
	tbl := buildTable(t,
		play("2024-01-10T10:00:00Z", "A", "X", 1_800_000),
		ios,
		play("2024-02-11T10:00:00Z", "C", "X", 1_800_000),
	)
	b := mustCompute(t, utcEngine(), tbl)

	assert.Equal(t, Series{{"android", 0.5}, {"ios", 0.5}}, b.Section4.PlatformPercent)
	assert.Equal(t, map[string]map[string]float64{
		"2024-01": {"android": 0.5, "ios": 0},
		"2024-02": {"android": 0.5, "ios": 1.0},
	}, b.Section4.PlatformOverTime)
}

func TestBundleJSONShape(t *testing.T) {
	tbl := buildTable(t,
		play(at(0), "A", "X", 200000),
		play(at(time.Minute), "B", "Y", 300000),
	)
	b := mustCompute(t, utcEngine(), tbl)
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var generic map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	for _, section := range []string{"section1", "section2", "section3", "section4", "section5"} {
		assert.Contains(t, generic, section)
	}
	assert.Contains(t, string(data), `"top_songs":{"B":300000,"A":200000}`)
	assert.Contains(t, string(data), `"total_sessions":1`)

	var back Bundle
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(b, &back); diff != "" {
		t.Errorf("bundle round trip (-want +got):\n%s", diff)
	}
}
