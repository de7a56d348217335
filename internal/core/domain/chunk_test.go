package domain

import (
	"encoding/json"
	"testing"
)

func TestMetadata_MarshalJSON_Flat(t *testing.T) {
	m := NewMetadata("doc-1", map[string]any{"page": 3, "subject": "algorithms"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw["documentId"] != "doc-1" {
		t.Errorf("expected documentId doc-1, got %v", raw["documentId"])
	}
	if raw["subject"] != "algorithms" {
		t.Errorf("expected subject tag, got %v", raw["subject"])
	}
	if raw["page"] != float64(3) {
		t.Errorf("expected page 3, got %v", raw["page"])
	}
}

func TestMetadata_ExtraCannotOverrideDocumentID(t *testing.T) {
	m := NewMetadata("doc-1", map[string]any{"documentId": "spoofed"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var back Metadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.DocumentID != "doc-1" {
		t.Errorf("expected doc-1, got %s", back.DocumentID)
	}
	if _, ok := m.Extra["documentId"]; ok {
		t.Error("documentId must not be kept in extra tags")
	}
}

func TestMetadata_DocumentIDTagSurvivesRoundTrip(t *testing.T) {
	m := NewMetadata("doc-1", map[string]any{"documentId": "spoofed", "page": 2})
	if len(m.Extra) != 1 {
		t.Fatalf("expected only the page tag, got %v", m.Extra)
	}

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var back Metadata
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if back.DocumentID != m.DocumentID {
		t.Errorf("expected %s, got %s", m.DocumentID, back.DocumentID)
	}
	if len(back.Extra) != len(m.Extra) || back.Extra["page"] != float64(2) {
		t.Errorf("extra tags changed across round-trip: %v -> %v", m.Extra, back.Extra)
	}

	only := NewMetadata("doc-2", map[string]any{"documentId": "x"})
	if only.Extra != nil {
		t.Errorf("expected nil extra, got %v", only.Extra)
	}
}

func TestMetadata_UnmarshalJSON(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"documentId":"abc","source":"upload"}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.DocumentID != "abc" {
		t.Errorf("expected abc, got %s", m.DocumentID)
	}
	if v, ok := m.Get("source"); !ok || v != "upload" {
		t.Errorf("expected source tag, got %v", v)
	}
	if _, ok := m.Extra["documentId"]; ok {
		t.Error("documentId should not be duplicated into Extra")
	}
}

func TestMetadata_UnmarshalJSON_NonStringDocumentID(t *testing.T) {
	var m Metadata
	if err := json.Unmarshal([]byte(`{"documentId":42}`), &m); err == nil {
		t.Error("expected error for numeric documentId")
	}
}

func TestMetadata_Clone(t *testing.T) {
	m := NewMetadata("doc-1", map[string]any{"k": "v"})
	c := m.Clone()
	c.Extra["k"] = "changed"

	if m.Extra["k"] != "v" {
		t.Error("clone should not share the extra map")
	}
}

func TestNewMetadata_CopiesExtra(t *testing.T) {
	extra := map[string]any{"k": "v"}
	m := NewMetadata("doc-1", extra)
	extra["k"] = "changed"

	if m.Extra["k"] != "v" {
		t.Error("NewMetadata should copy the extra map")
	}
}
