// Package history turns parsed export records into the
// canonical, timestamp-ordered event table that metrics are
// computed over.
package history

import (
	"time"

	"github.com/wesm/listenview/internal/parser"
)

// SessionGap is the longest inactivity gap that still
// continues a listening session.
const SessionGap = 30 * time.Minute

const monthLayout = "2006-01"

// Event is one normalized playback. Every derived column is
// filled in once during Build and never recomputed.
type Event struct {
	Timestamp time.Time       `json:"ts"`
	Username  string          `json:"username"`
	Platform  parser.Platform `json:"platform"`
	MsPlayed  int64           `json:"ms_played"`
	Country   string          `json:"conn_country"`
	IP        string          `json:"ip_addr_decrypted"`
	UserAgent string          `json:"user_agent_decrypted"`
	Track     string          `json:"master_metadata_track_name"`
	Artist    string          `json:"master_metadata_album_artist_name"`
	Album     string          `json:"master_metadata_album_album_name"`

	Hour      int    `json:"hour"`
	Weekday   string `json:"weekday"`
	Month     string `json:"month"` // YYYY-MM, UTC
	Date      string `json:"date"`  // YYYY-MM-DD, UTC
	SessionID int    `json:"session_id"`
}

// derive fills the calendar columns from the UTC timestamp.
func (e *Event) derive() {
	ts := e.Timestamp.UTC()
	e.Timestamp = ts
	e.Hour = ts.Hour()
	e.Weekday = ts.Weekday().String()
	e.Month = ts.Format(monthLayout)
	e.Date = ts.Format("2006-01-02")
}
