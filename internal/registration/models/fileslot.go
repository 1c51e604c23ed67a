package models

import (
	"encoding/json"
	"fmt"
)

// SlotKind discriminates the FileSlot union.
type SlotKind string

const (
	// SlotEmpty: nothing attached.
	SlotEmpty SlotKind = "empty"
	// SlotInMemory: bytes received this session but not yet persisted to the
	// object store. Survives a failed background upload so the user never
	// loses their file; never serialized into the remote snapshot.
	SlotInMemory SlotKind = "inmemory"
	// SlotStored: a previously uploaded object referenced by path + signed URL.
	SlotStored SlotKind = "stored"
)

// FileRef references a stored object. The URL is a signed URL with a fixed
// validity window; it is re-derived from Path on every hydration and never
// trusted as durable.
type FileRef struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	Name        string `json:"name"`
	ContentType string `json:"content_type,omitempty"`
}

// FileSlot is one named document or photo position within the draft. It is a
// tagged union: Empty, InMemory(bytes, name), or Stored(ref). Resolution
// logic lives here rather than being re-derived at call sites.
type FileSlot struct {
	Kind SlotKind `json:"kind"`

	// InMemory representation.
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Data        []byte `json:"-"`

	// Stored representation.
	Ref FileRef `json:"ref,omitzero"`
}

// EmptySlot returns the zero slot.
func EmptySlot() FileSlot {
	return FileSlot{Kind: SlotEmpty}
}

// InMemorySlot wraps freshly received bytes.
func InMemorySlot(name, contentType string, data []byte) FileSlot {
	return FileSlot{Kind: SlotInMemory, Name: name, ContentType: contentType, Data: data}
}

// StoredSlot wraps a reference to a previously uploaded object.
func StoredSlot(ref FileRef) FileSlot {
	return FileSlot{Kind: SlotStored, Ref: ref, Name: ref.Name}
}

// Filled reports whether the slot counts as filled for validation gates:
// a non-empty in-memory file, or a stored ref with both url and path. A slot
// with neither is empty regardless of stale metadata.
func (s FileSlot) Filled() bool {
	switch s.Kind {
	case SlotInMemory:
		return len(s.Data) > 0
	case SlotStored:
		return s.Ref.URL != "" && s.Ref.Path != ""
	default:
		return false
	}
}

// StoredPath returns the object path if the slot holds a stored ref.
func (s FileSlot) StoredPath() (string, bool) {
	if s.Kind == SlotStored && s.Ref.Path != "" {
		return s.Ref.Path, true
	}
	return "", false
}

// DisplayName returns the user-facing file name for either representation.
func (s FileSlot) DisplayName() string {
	if s.Kind == SlotStored && s.Ref.Name != "" {
		return s.Ref.Name
	}
	return s.Name
}

// MimeType returns the content type for either representation.
func (s FileSlot) MimeType() string {
	if s.Kind == SlotStored && s.Ref.ContentType != "" {
		return s.Ref.ContentType
	}
	return s.ContentType
}

// Normalize repairs a slot after deserialization: an in-memory slot whose
// bytes did not survive the round trip (they are never serialized) and a
// stored slot missing url or path both degrade to empty.
func (s FileSlot) Normalize() FileSlot {
	if !s.Filled() {
		return EmptySlot()
	}
	return s
}

// MarshalJSON serializes the slot for the remote snapshot. Bytes are never
// included; an in-memory slot is persisted as its metadata only and will
// normalize to empty on load unless it was uploaded before the save.
func (s FileSlot) MarshalJSON() ([]byte, error) {
	type wire struct {
		Kind SlotKind `json:"kind"`
		Name string   `json:"name,omitempty"`
		Ref  *FileRef `json:"ref,omitempty"`
	}
	w := wire{Kind: s.Kind, Name: s.Name}
	if s.Kind == SlotStored {
		ref := s.Ref
		w.Ref = &ref
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a slot from the remote snapshot and normalizes it.
func (s *FileSlot) UnmarshalJSON(data []byte) error {
	var w struct {
		Kind SlotKind `json:"kind"`
		Name string   `json:"name,omitempty"`
		Ref  *FileRef `json:"ref,omitempty"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal file slot: %w", err)
	}
	slot := FileSlot{Kind: w.Kind, Name: w.Name}
	if w.Ref != nil {
		slot.Ref = *w.Ref
	}
	if slot.Kind == "" {
		slot.Kind = SlotEmpty
	}
	*s = slot.Normalize()
	return nil
}

// DocumentKey names one of the four required document slots.
type DocumentKey string

const (
	DocSaleDeed   DocumentKey = "sale_deed"
	DocEC         DocumentKey = "ec"
	DocKhata      DocumentKey = "khata"
	DocTaxReceipt DocumentKey = "tax_receipt"
)

// DocumentKeys lists the required document slots in display order.
var DocumentKeys = []DocumentKey{DocSaleDeed, DocEC, DocKhata, DocTaxReceipt}

// IsValidDocumentKey reports whether k names a known document slot.
func IsValidDocumentKey(k DocumentKey) bool {
	for _, known := range DocumentKeys {
		if k == known {
			return true
		}
	}
	return false
}
