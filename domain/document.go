package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Document is a JSON record stored under a slash-separated path such as
// "ngos/{id}/donations/{donationId}".
type Document struct {
	Path      string          `json:"path"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// ID returns the last path segment.
func (d *Document) ID() string {
	if d == nil {
		return ""
	}
	_, id := SplitPath(d.Path)
	return id
}

// Decode unmarshals the document body into dst.
func (d *Document) Decode(dst interface{}) error {
	if d == nil || len(d.Data) == 0 {
		return ErrDocumentNotFound
	}
	return json.Unmarshal(d.Data, dst)
}

func (d *Document) Touch() {
	if d == nil {
		return
	}
	d.UpdatedAt = time.Now()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = d.UpdatedAt
	}
}

// ChangeKind describes a mutation applied to a document.
type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"
	ChangePatch  ChangeKind = "patch"
	ChangeDelete ChangeKind = "delete"
)

// Change is published on the change feed after every document mutation.
type Change struct {
	Path       string          `json:"path"`
	Collection string          `json:"collection"`
	Kind       ChangeKind      `json:"kind"`
	Data       json.RawMessage `json:"data,omitempty"`
	At         time.Time       `json:"at"`
}

// NewChange builds a change for path, deriving its collection.
func NewChange(path string, kind ChangeKind, data json.RawMessage) Change {
	collection, _ := SplitPath(path)
	return Change{
		Path:       path,
		Collection: collection,
		Kind:       kind,
		Data:       data,
		At:         time.Now().UTC(),
	}
}

// SplitPath returns the parent collection path and the document id.
func SplitPath(path string) (collection, id string) {
	path = strings.Trim(path, "/")
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return "", path
	}
	return path[:idx], path[idx+1:]
}

// JoinPath joins segments with "/" ignoring empty ones.
func JoinPath(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		s = strings.Trim(s, "/")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}

// ValidPath reports whether path addresses a document: an even, non-zero
// number of non-empty segments.
func ValidPath(path string) bool {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return false
	}
	segments := strings.Split(path, "/")
	if len(segments)%2 != 0 {
		return false
	}
	for _, s := range segments {
		if s == "" {
			return false
		}
	}
	return true
}
