package calendar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a calendar file
//
//	groups:
//	  - id: g1
//	    start: 2025-01-02
//	    end: 2025-01-15
type File struct {
	Groups []FileGroup `yaml:"groups"`
}

// FileGroup is one group entry of a calendar file
type FileGroup struct {
	ID    string `yaml:"id"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// Load reads a YAML calendar file
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func Load(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes a YAML calendar from r
func Parse(r io.Reader) (*Calendar, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode calendar: %w", err)
	}

	groups := make([]Group, 0, len(f.Groups))
	for _, fg := range f.Groups {
		start, err := time.Parse(DateLayout, fg.Start)
		if err != nil {
			return nil, fmt.Errorf("group %s: invalid start %q: %w", fg.ID, fg.Start, err)
		}
		end, err := time.Parse(DateLayout, fg.End)
		if err != nil {
			return nil, fmt.Errorf("group %s: invalid end %q: %w", fg.ID, fg.End, err)
		}
		groups = append(groups, Group{ID: fg.ID, Start: start, End: end})
	}

	return New(groups)
}

// LoadOrDefault loads path, or returns the built-in calendar when path is empty
func LoadOrDefault(path string) (*Calendar, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
