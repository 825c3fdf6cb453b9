// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"testing"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/stretchr/testify/assert"
)

func TestSortAscending(t *testing.T) {
	docs := []document.Document{
		doc(map[string]document.Value{"age": document.Number(30)}),
		doc(map[string]document.Value{"age": document.Number(10)}),
		doc(map[string]document.Value{"age": document.Number(20)}),
	}
	Sort(docs, []SortKey{{Path: "age", Direction: 1}})
	ages := make([]float64, len(docs))
	for i, d := range docs {
		ages[i], _ = d["age"].AsNumber()
	}
	assert.Equal(t, []float64{10, 20, 30}, ages)
}

func TestSortUndefinedBeforeDefined(t *testing.T) {
	docs := []document.Document{
		doc(map[string]document.Value{"age": document.Number(10)}),
		doc(map[string]document.Value{}),
	}
	Sort(docs, []SortKey{{Path: "age", Direction: 1}})
	_, ok := docs[0]["age"]
	assert.False(t, ok, "expected the document missing 'age' to sort first")
}

func TestSortDescending(t *testing.T) {
	docs := []document.Document{
		doc(map[string]document.Value{"age": document.Number(10)}),
		doc(map[string]document.Value{"age": document.Number(30)}),
	}
	Sort(docs, []SortKey{{Path: "age", Direction: -1}})
	first, _ := docs[0]["age"].AsNumber()
	assert.Equal(t, float64(30), first)
}

func TestSkipAndLimit(t *testing.T) {
	docs := []document.Document{doc(nil), doc(nil), doc(nil), doc(nil)}
	got := Limit(Skip(docs, 1), 2)
	assert.Len(t, got, 2)
}

func TestProjectionAlwaysKeepsID(t *testing.T) {
	d := doc(map[string]document.Value{
		"_id":    document.String("abc"),
		"name":   document.String("Alice"),
		"secret": document.String("shh"),
	})
	p := Projection{"name": true}
	out := p.Apply(d)
	_, hasID := out["_id"]
	_, hasSecret := out["secret"]
	assert.True(t, hasID)
	assert.False(t, hasSecret)
}
