package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wesm/listenview/internal/history"
	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/testjsonl"
)

var testBase = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func at(offset time.Duration) string {
	return testBase.Add(offset).Format(time.RFC3339)
}

func play(ts, track, artist string, ms int64) testjsonl.Play {
	return testjsonl.Play{
		TS:       ts,
		Track:    track,
		Artist:   artist,
		Album:    "album " + artist,
		MsPlayed: ms,
		Platform: "Android OS 12",
		Username: "U",
	}
}

func buildTable(t *testing.T, plays ...testjsonl.Play) *history.Table {
	t.Helper()
	records, err := parser.ParseFile([]byte(testjsonl.Array(plays...)))
	require.NoError(t, err)
	return history.Build(records)
}

func utcEngine() *Engine {
	return New(Options{Location: time.UTC})
}

func mustCompute(t *testing.T, e *Engine, tbl *history.Table) *Bundle {
	t.Helper()
	b, err := e.Compute(tbl)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func countTotal(c Counts) int {
	n := 0
	for _, p := range c {
		n += p.Value
	}
	return n
}
