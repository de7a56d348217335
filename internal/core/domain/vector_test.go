package domain

import "testing"

func TestVectorRecord_Clone(t *testing.T) {
	r := VectorRecord{
		Content:   "hello",
		Metadata:  NewMetadata("doc-1", map[string]any{"k": "v"}),
		Embedding: []float32{0.1, 0.2},
		Index:     4,
	}

	c := r.Clone()
	c.Embedding[0] = 9
	c.Metadata.Extra["k"] = "changed"

	if r.Embedding[0] != 0.1 {
		t.Error("clone should not share embedding storage")
	}
	if r.Metadata.Extra["k"] != "v" {
		t.Error("clone should not share metadata")
	}
	if c.Index != 4 || c.Content != "hello" {
		t.Errorf("unexpected clone: %+v", c)
	}
}

func TestSerializedStore_Dimension(t *testing.T) {
	var nilStore *SerializedStore
	if nilStore.Dimension() != 0 {
		t.Error("expected 0 for nil store")
	}

	s := &SerializedStore{Records: []VectorRecord{{Embedding: []float32{1, 2, 3}}}}
	if s.Dimension() != 3 {
		t.Errorf("expected 3, got %d", s.Dimension())
	}
}

func TestRetrievalResult_DocumentIDs(t *testing.T) {
	r := &RetrievalResult{
		Matches: []ScoredRecord{
			{Record: VectorRecord{Metadata: NewMetadata("b", nil)}},
			{Record: VectorRecord{Metadata: NewMetadata("a", nil)}},
			{Record: VectorRecord{Metadata: NewMetadata("b", nil)}},
		},
	}

	ids := r.DocumentIDs()
	if len(ids) != 2 || ids[0] != "b" || ids[1] != "a" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
