package domain

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestChangePayloadCloning(t *testing.T) {
	raw := json.RawMessage(`{"id":1}`)
	payload := NewChangePayload(raw)

	raw[2] = 'x'
	if got := payload.Raw(); !bytes.Equal(got, []byte(`{"id":1}`)) {
		t.Fatalf("payload shares caller bytes: %s", got)
	}

	out := payload.Raw()
	out[2] = 'x'
	if got := payload.Raw(); !bytes.Equal(got, []byte(`{"id":1}`)) {
		t.Fatalf("payload shares returned bytes: %s", got)
	}
}

func TestChangePayloadDefinedStates(t *testing.T) {
	undefined := UndefinedChangePayload()
	if undefined.Defined() || !undefined.IsEmpty() || undefined.Raw() != nil {
		t.Fatalf("undefined payload wrong: %+v", undefined)
	}

	empty := NewChangePayload(nil)
	if !empty.Defined() || !empty.IsEmpty() {
		t.Fatalf("empty payload wrong: %+v", empty)
	}

	set := NewChangePayload([]byte(`1`))
	if !set.Defined() || set.IsEmpty() {
		t.Fatalf("set payload wrong: %+v", set)
	}
}

func TestChangePayloadJSONRoundTrip(t *testing.T) {
	payload, err := NewChangePayloadFromValue(Coordinates{Base: Base{ID: 5}, X: 2, Y: 1.5})
	if err != nil {
		t.Fatalf("from value: %v", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded ChangePayload
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var coordinates Coordinates
	if err := json.Unmarshal(decoded.Raw(), &coordinates); err != nil {
		t.Fatalf("decode inner: %v", err)
	}
	if coordinates.ID != 5 || coordinates.X != 2 {
		t.Fatalf("round trip lost data: %+v", coordinates)
	}

	undefined, err := json.Marshal(UndefinedChangePayload())
	if err != nil {
		t.Fatalf("marshal undefined: %v", err)
	}
	if string(undefined) != "null" {
		t.Fatalf("undefined should encode as null, got %s", undefined)
	}
}
