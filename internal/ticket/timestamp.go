package ticket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// naiveLayout is used by backends serializing timestamps without a zone offset; those are read as UTC
const naiveLayout = "2006-01-02T15:04:05.999999999"

// Timestamp wraps time.Time to accept both zoned and naive ISO-8601 timestamps as well as null
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (timestamp *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		timestamp.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		timestamp.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		timestamp.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(naiveLayout, raw, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	timestamp.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (timestamp Timestamp) MarshalJSON() ([]byte, error) {
	if timestamp.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(timestamp.Time.Format(time.RFC3339Nano))
}
