package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// EnrollmentRecord holds the attributes committed alongside one enrollment
// image. Records are created on enrollment and never mutated; re-enrolling a
// person produces a new image id with its own record.
type EnrollmentRecord struct {
	Name       string `json:"name"`
	Age        Age    `json:"age"`
	SourceURI  string `json:"source_uri,omitempty"`
	CapturedAt *int64 `json:"captured_at,omitempty"`
}

// Age is stored as a string but tolerates numeric values in hand-edited
// metadata documents.
type Age string

func (a *Age) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Age(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*a = Age(n.String())
		return nil
	}
	return fmt.Errorf("age must be a string or a number, got %s", string(data))
}

func (a Age) String() string { return string(a) }

// MetadataStore persists the imageId -> EnrollmentRecord mapping as a single
// pretty-printed JSON document next to the enrollment images.
type MetadataStore struct {
	path string
}

func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{path: path}
}

// Load reads the full mapping. A missing or unparsable document degrades to
// an empty mapping; corruption must only reduce training data, never stop the
// pipeline.
func (s *MetadataStore) Load() map[string]EnrollmentRecord {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("store: failed to read metadata file %s: %v", s.path, err)
		}
		return map[string]EnrollmentRecord{}
	}

	records := map[string]EnrollmentRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("store: metadata file %s is malformed, treating as empty: %v", s.path, err)
		return map[string]EnrollmentRecord{}
	}
	return records
}

// Upsert merges one entry and rewrites the whole document atomically via a
// temp file and rename. Concurrent upserts are last-writer-wins; there is no
// cross-process locking.
func (s *MetadataStore) Upsert(imageID string, record EnrollmentRecord) error {
	if imageID == "" {
		return fmt.Errorf("image id cannot be empty")
	}

	records := s.Load()
	records[imageID] = record

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create metadata directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".metadata-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp metadata file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp metadata file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp metadata file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}
	return nil
}
