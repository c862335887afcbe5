// loader.go — Load saved design records from JSON.
package design

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and parses a design JSON file. Recoverable problems are
// returned as warnings; only an unreadable file is an error.
func Load(path string) (*Record, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read design: %w", err)
	}
	rec, warnings := Parse(data)
	return rec, warnings, nil
}

// Parse decodes a design record. Malformed JSON yields an all-defaults
// record plus a warning so the editor can still open.
func Parse(data []byte) (*Record, []string) {
	var warnings []string

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		warnings = append(warnings, fmt.Sprintf("malformed design: %v — using all defaults", err))
		return &Record{}, warnings
	}

	return &rec, append(warnings, Validate(&rec)...)
}

// Encode returns the indented JSON form of rec.
func Encode(rec *Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode design: %w", err)
	}
	return data, nil
}
