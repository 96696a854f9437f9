package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Export field names in the listening-history files.
const (
	FieldTimestamp = "ts"
	FieldUsername  = "username"
	FieldPlatform  = "platform"
	FieldMsPlayed  = "ms_played"
	FieldCountry   = "conn_country"
	FieldIP        = "ip_addr_decrypted"
	FieldUserAgent = "user_agent_decrypted"
	FieldTrack     = "master_metadata_track_name"
	FieldArtist    = "master_metadata_album_artist_name"
	FieldAlbum     = "master_metadata_album_album_name"
)

// ErrMalformed reports an export file that is neither a JSON
// array nor newline-delimited JSON.
var ErrMalformed = errors.New("malformed export file")

// ParseError locates a malformed file within an upload.
type ParseError struct {
	File int // 0-based index into the upload's files
	Line int // 1-based line for NDJSON failures, 0 otherwise
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf(
			"file %d line %d: %v", e.File+1, e.Line, e.Err,
		)
	}
	return fmt.Sprintf("file %d: %v", e.File+1, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Record is one loosely-typed event object from an export.
// Records keep their original JSON; fields are read on
// demand, so shape differences across files are preserved.
type Record struct {
	raw gjson.Result
}

// NewRecord wraps a single JSON document.
func NewRecord(json string) Record {
	return Record{raw: gjson.Parse(json)}
}

// Get returns the raw value of a top-level field. Records
// that are not JSON objects have no fields.
func (r Record) Get(field string) gjson.Result {
	if !r.raw.IsObject() {
		return gjson.Result{}
	}
	return r.raw.Get(field)
}

// String returns a string field and whether it was present
// and non-null. Numbers and booleans are rendered as their
// JSON text.
func (r Record) String(field string) (string, bool) {
	v := r.Get(field)
	switch v.Type {
	case gjson.Null:
		return "", false
	case gjson.String:
		return v.Str, true
	default:
		return v.Raw, true
	}
}

// Int returns an integer field, truncating fractional values.
// Absent, null and non-numeric values report false.
func (r Record) Int(field string) (int64, bool) {
	v := r.Get(field)
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}

// Raw returns the record's JSON text.
func (r Record) Raw() string {
	return r.raw.Raw
}
