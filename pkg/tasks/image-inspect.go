package tasks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

const unknownValue = "Unknown"

// ErrInspectParse is returned when inspect output is not a JSON array with at least one record
var ErrInspectParse = errors.New("cannot parse image inspect output")

// ImageMetadata is the subset of `inspect` output reported after a build
type ImageMetadata struct {
	SizeBytes    int64
	Created      string
	Architecture string
}

// SizeMB renders the size the way the report prints it, e.g. "1.00 MB"
func (m ImageMetadata) SizeMB() string {
	return fmt.Sprintf("%.2f MB", float64(m.SizeBytes)/1024/1024)
}

func (m ImageMetadata) CreatedOrUnknown() string {
	if m.Created == "" {
		return unknownValue
	}
	return m.Created
}

func (m ImageMetadata) ArchitectureOrUnknown() string {
	if m.Architecture == "" {
		return unknownValue
	}
	return m.Architecture
}

// imageSize accepts a JSON number or a numeric string
type imageSize int64

func (s *imageSize) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*s = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		b = []byte(str)
	}

	if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
		*s = imageSize(n)
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid image size %q: %w", string(b), err)
	}
	*s = imageSize(f)
	return nil
}

type inspectRecord struct {
	Size         *imageSize `json:"Size"`
	Created      *string    `json:"Created"`
	Architecture *string    `json:"Architecture"`
}

// ParseInspectOutput decodes a JSON array and reads the first record
//
// Every field is optional, absent ones stay zero.
func ParseInspectOutput(output string) (*ImageMetadata, error) {
	var records []inspectRecord
	if err := json.Unmarshal([]byte(output), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInspectParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInspectParse)
	}

	record := records[0]
	metadata := new(ImageMetadata)
	if record.Size != nil {
		metadata.SizeBytes = int64(*record.Size)
	}
	if record.Created != nil {
		metadata.Created = *record.Created
	}
	if record.Architecture != nil {
		metadata.Architecture = *record.Architecture
	}
	return metadata, nil
}
