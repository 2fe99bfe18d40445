package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TemporalTag is the optional acquisition date of an image, in milliseconds since the Unix epoch
type TemporalTag struct {
	ms  int64
	set bool
}

// NoTemporalTag is the zero TemporalTag
var NoTemporalTag = TemporalTag{}

// TagFromMillis returns a tag from a number of milliseconds since the Unix epoch (unchanged)
func TagFromMillis(ms int64) TemporalTag {
	return TemporalTag{ms: ms, set: true}
}

// TagFromTime returns a tag from a date (see FormatDate)
func TagFromTime(t time.Time) TemporalTag {
	return TemporalTag{ms: FormatDate(t), set: true}
}

// IsSet returns false for NoTemporalTag
func (t TemporalTag) IsSet() bool {
	return t.set
}

// Millis returns the normalized timestamp
func (t TemporalTag) Millis() int64 {
	return t.ms
}

func (t TemporalTag) String() string {
	if !t.set {
		return ""
	}
	return strconv.FormatInt(t.ms, 10)
}

// FormatDate returns the number of milliseconds elapsed since the Unix epoch, truncated toward zero
func FormatDate(t time.Time) int64 {
	sec, nsec := t.Unix(), int64(t.Nanosecond())
	if sec < 0 && nsec > 0 {
		sec, nsec = sec+1, nsec-int64(time.Second)
	}
	return sec*1000 + nsec/int64(time.Millisecond)
}

// ParseTemporalTag parses a tag from a string: either an integer (milliseconds since epoch) or a date in any
// format supported by dateparse (interpreted in UTC if no timezone is given). An empty string returns NoTemporalTag.
func ParseTemporalTag(s string) (TemporalTag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoTemporalTag, nil
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return TagFromMillis(ms), nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return NoTemporalTag, fmt.Errorf("ParseTemporalTag[%s]: %w", s, err)
	}
	return TagFromTime(t), nil
}

// BandsFromNames wraps each name into a Band, preserving the order
func BandsFromNames(names []string) []Band {
	if len(names) == 0 {
		return nil
	}
	bands := make([]Band, len(names))
	for i, name := range names {
		bands[i] = Band{ID: name}
	}
	return bands
}

// ParseBands parses a comma-separated list of band names
func ParseBands(s string) []Band {
	var names []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return BandsFromNames(names)
}

// NewIngestionRequest creates the payload to ingest the object located at uri into the asset.
// asset must be an absolute path.
func NewIngestionRequest(uri, asset string, tag TemporalTag, bands []Band) IngestionRequest {
	req := IngestionRequest{
		ID:       asset,
		Tilesets: []Tileset{{Sources: []Source{{PrimaryPath: uri}}}},
	}
	if tag.IsSet() {
		req.Properties = map[string]interface{}{
			PropTimeStart: tag.Millis(),
			PropTimeEnd:   tag.Millis(),
		}
	}
	if len(bands) > 0 {
		req.Bands = bands
	}
	return req
}
