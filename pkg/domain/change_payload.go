package domain

import "encoding/json"

// ChangePayload carries the JSON snapshot of an entity that rides on a
// change event. The commit path serializes each entity once; every
// WebSocket subscriber then receives the same bytes. The zero value is
// the "not set" state used for DELETED events, which carry no snapshot.
type ChangePayload struct {
	set  bool
	data []byte
}

// NewChangePayload wraps raw JSON in a payload. The input is copied so a
// caller reusing its buffer cannot corrupt events already queued for
// delivery. A nil input still produces a set payload with no bytes.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	p := ChangePayload{set: true}
	if len(raw) > 0 {
		p.data = append([]byte(nil), raw...)
	}
	return p
}

// NewChangePayloadFromValue serializes value and wraps the result.
func NewChangePayloadFromValue[T any](value T) (ChangePayload, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}, err
	}
	return NewChangePayload(raw), nil
}

// UndefinedChangePayload returns the "not set" payload.
func UndefinedChangePayload() ChangePayload {
	return ChangePayload{}
}

// Defined reports whether the payload was ever set.
func (p ChangePayload) Defined() bool { return p.set }

// IsEmpty reports whether the payload holds no bytes.
func (p ChangePayload) IsEmpty() bool { return len(p.data) == 0 }

// Raw hands out a copy of the snapshot bytes, or nil for an unset or
// empty payload.
func (p ChangePayload) Raw() json.RawMessage {
	if len(p.data) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), p.data...)
}

// MarshalJSON writes the snapshot verbatim; unset and empty payloads
// serialize as null so DELETED events stay well formed.
func (p ChangePayload) MarshalJSON() ([]byte, error) {
	if len(p.data) == 0 {
		return []byte("null"), nil
	}
	return p.Raw(), nil
}

// UnmarshalJSON keeps the incoming bytes as an opaque snapshot.
func (p *ChangePayload) UnmarshalJSON(raw []byte) error {
	*p = NewChangePayload(raw)
	return nil
}
