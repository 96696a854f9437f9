// Package testjsonl provides listening-history export fixture
// builders shared by the parser, history, metrics and server
// test packages.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// Play describes one exported playback event. Zero-valued
// optional fields are omitted from the JSON; use Null to emit
// an explicit null track name.
type Play struct {
	TS        string
	Username  string
	Platform  string
	MsPlayed  int64
	Country   string
	IP        string
	UserAgent string
	Track     string
	Artist    string
	Album     string
	NullTrack bool
}

// Map returns the play as an export object.
func (p Play) Map() map[string]any {
	m := map[string]any{
		"ts":        p.TS,
		"ms_played": p.MsPlayed,
	}
	setIf(m, "username", p.Username)
	setIf(m, "platform", p.Platform)
	setIf(m, "conn_country", p.Country)
	setIf(m, "ip_addr_decrypted", p.IP)
	setIf(m, "user_agent_decrypted", p.UserAgent)
	setIf(m, "master_metadata_album_artist_name", p.Artist)
	setIf(m, "master_metadata_album_album_name", p.Album)
	switch {
	case p.NullTrack:
		m["master_metadata_track_name"] = nil
	default:
		m["master_metadata_track_name"] = p.Track
	}
	return m
}

// JSON returns the play as a compact JSON object.
func (p Play) JSON() string {
	return mustMarshal(p.Map())
}

// Array renders plays as a single JSON array document.
func Array(plays ...Play) string {
	objs := make([]map[string]any, len(plays))
	for i, p := range plays {
		objs[i] = p.Map()
	}
	return mustMarshal(objs)
}

// Lines renders plays as newline-delimited JSON.
func Lines(plays ...Play) string {
	lines := make([]string, len(plays))
	for i, p := range plays {
		lines[i] = p.JSON()
	}
	return JoinJSONL(lines...)
}

// JoinJSONL joins JSON lines with newlines and a trailing
// newline.
func JoinJSONL(lines ...string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func setIf(m map[string]any, key, val string) {
	if val != "" {
		m[key] = val
	}
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
