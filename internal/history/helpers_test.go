package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wesm/listenview/internal/parser"
	"github.com/wesm/listenview/internal/testjsonl"
)

func mustRecords(t *testing.T, plays ...testjsonl.Play) []parser.Record {
	t.Helper()
	records, err := parser.ParseFile([]byte(testjsonl.Array(plays...)))
	require.NoError(t, err)
	return records
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

func play(ts, track string, ms int64) testjsonl.Play {
	return testjsonl.Play{
		TS:       ts,
		Track:    track,
		Artist:   "artist " + track,
		Album:    "album " + track,
		MsPlayed: ms,
		Platform: "Android OS 12",
		Username: "u",
	}
}
