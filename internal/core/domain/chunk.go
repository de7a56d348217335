package domain

import (
	"encoding/json"
	"fmt"
)

// MetadataDocumentIDKey is the JSON key carrying the originating document ID
const MetadataDocumentIDKey = "documentId"

// Metadata is chunk provenance. DocumentID is mandatory; Extra holds free-form tags.
type Metadata struct {
	DocumentID string
	Extra      map[string]any
}

// NewMetadata creates metadata for a document with optional extra tags.
// A documentId entry in extra is dropped; DocumentID is the only source of that key.
func NewMetadata(documentID string, extra map[string]any) Metadata {
	return Metadata{DocumentID: documentID, Extra: cloneExtra(extra)}
}

// Clone returns a copy that shares no maps with m
func (m Metadata) Clone() Metadata {
	return Metadata{DocumentID: m.DocumentID, Extra: cloneExtra(m.Extra)}
}

// Get returns an extra tag value
func (m Metadata) Get(key string) (any, bool) {
	if key == MetadataDocumentIDKey {
		return m.DocumentID, m.DocumentID != ""
	}
	v, ok := m.Extra[key]
	return v, ok
}

// MarshalJSON flattens metadata into a single object with documentId alongside extra tags
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+1)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[MetadataDocumentIDKey] = m.DocumentID
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat metadata object. A non-string documentId is rejected.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = Metadata{}
	if v, ok := raw[MetadataDocumentIDKey]; ok {
		id, isString := v.(string)
		if !isString {
			return fmt.Errorf("metadata %s must be a string, got %T", MetadataDocumentIDKey, v)
		}
		m.DocumentID = id
		delete(raw, MetadataDocumentIDKey)
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

func cloneExtra(extra map[string]any) map[string]any {
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		if k == MetadataDocumentIDKey {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Chunk is a contiguous slice of a document's preprocessed text
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Position int      `json:"position"` // Chunk position within document

	// Rune offsets into the preprocessed text; EndOffset is exclusive
	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`
}
