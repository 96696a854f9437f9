package store

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"

	"github.com/wesm/listenview/internal/history"
)

// encodeTable serializes a table as snappy-compressed JSON
// events for the byte-oriented backends.
func encodeTable(tbl *history.Table) ([]byte, error) {
	raw, err := json.Marshal(tbl.Events())
	if err != nil {
		return nil, fmt.Errorf("encoding table: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodeTable(blob []byte) (*history.Table, error) {
	raw, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("decompressing table: %w", err)
	}
	var events []history.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}
	return history.NewTable(events), nil
}
