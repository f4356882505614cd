// Package jobmarket implements the job market agent: it summarizes scraped
// job postings relevant to the user's career goal. Postings come from a
// pluggable Source; an empty source is a normal no-data branch, not a
// failure.
package jobmarket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Posting is one scraped job listing.
type Posting struct {
	Title       string   `json:"title"`
	Company     string   `json:"company"`
	Location    string   `json:"location,omitempty"`
	Skills      []string `json:"skills,omitempty"`
	Description string   `json:"description,omitempty"`
	PostedAt    string   `json:"posted_at,omitempty"`
}

// Source supplies job postings for analysis.
type Source interface {
	Postings(ctx context.Context) ([]Posting, error)
}

// FileSource reads postings from a scraped-postings JSON file: either a bare
// array or an object with a "postings" array.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed postings source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Postings implements Source. A missing file yields no postings rather than
// an error, matching the scraper's behavior before its first run.
func (s *FileSource) Postings(_ context.Context) ([]Posting, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read postings file %s: %w", s.path, err)
	}

	var postings []Posting
	if err := json.Unmarshal(data, &postings); err == nil {
		return postings, nil
	}

	var wrapped struct {
		Postings []Posting `json:"postings"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse postings file %s: %w", s.path, err)
	}
	return wrapped.Postings, nil
}

// StaticSource serves a fixed posting set. Used in tests and demos.
type StaticSource struct {
	postings []Posting
}

// NewStaticSource creates a source over a fixed posting slice.
func NewStaticSource(postings []Posting) *StaticSource {
	return &StaticSource{postings: postings}
}

// Postings implements Source.
func (s *StaticSource) Postings(_ context.Context) ([]Posting, error) {
	return s.postings, nil
}
