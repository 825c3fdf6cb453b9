// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package document

import (
	"encoding/json"
	"testing"
)

func TestValueJSONRoundTrip(t *testing.T) {
	doc := Document{
		"name": String("Alice"),
		"age":  Number(30),
		"tags": Array(String("a"), String("b")),
	}
	data, err := json.Marshal(DocumentToInterface(doc))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	back, err := DocumentFromInterface(raw)
	if err != nil {
		t.Fatalf("from interface: %v", err)
	}

	if got, _ := back["name"].AsString(); got != "Alice" {
		t.Fatalf("expected name Alice, got %q", got)
	}
	if got, _ := back["age"].AsNumber(); got != 30 {
		t.Fatalf("expected age 30, got %v", got)
	}
}

func TestFromInterfaceRejectsUnsupportedType(t *testing.T) {
	if _, err := FromInterface(make(chan int)); err == nil {
		t.Fatal("expected an error for an unsupported Go type")
	}
}

func TestValueMarshalUnmarshalJSON(t *testing.T) {
	v := Array(Number(1), String("two"), Bool(true), Null())
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Value
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !Equal(v, back) {
		t.Fatalf("round trip mismatch: got %+v want %+v", back, v)
	}
}
