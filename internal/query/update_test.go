// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package query

import (
	"testing"

	"github.com/kraklabs/vaultdb/internal/document"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdateSet(t *testing.T) {
	d := doc(map[string]document.Value{"name": document.String("old")})
	out, err := ApplyUpdate(d, Update{"$set": map[string]any{"name": "new"}})
	require.NoError(t, err)
	name, _ := out["name"].AsString()
	require.Equal(t, "new", name)
}

func TestApplyUpdateUnset(t *testing.T) {
	d := doc(map[string]document.Value{"name": document.String("x")})
	out, err := ApplyUpdate(d, Update{"$unset": map[string]any{"name": ""}})
	require.NoError(t, err)
	_, ok := out["name"]
	require.False(t, ok)
}

func TestApplyUpdateIncOnAbsentField(t *testing.T) {
	d := doc(map[string]document.Value{})
	out, err := ApplyUpdate(d, Update{"$inc": map[string]any{"views": float64(5)}})
	require.NoError(t, err)
	n, _ := out["views"].AsNumber()
	require.Equal(t, float64(5), n)
}

func TestApplyUpdatePushOnAbsentField(t *testing.T) {
	d := doc(map[string]document.Value{})
	out, err := ApplyUpdate(d, Update{"$push": map[string]any{"tags": "new"}})
	require.NoError(t, err)
	arr, ok := out["tags"].AsArray()
	require.True(t, ok)
	require.Len(t, arr, 1)
}

func TestApplyUpdatePull(t *testing.T) {
	d := doc(map[string]document.Value{
		"tags": document.Array(document.String("a"), document.String("b"), document.String("a")),
	})
	out, err := ApplyUpdate(d, Update{"$pull": map[string]any{"tags": "a"}})
	require.NoError(t, err)
	arr, _ := out["tags"].AsArray()
	require.Len(t, arr, 1)
	v, _ := arr[0].AsString()
	require.Equal(t, "b", v)
}

func TestApplyUpdateDoesNotMutateOriginal(t *testing.T) {
	d := doc(map[string]document.Value{"name": document.String("old")})
	_, err := ApplyUpdate(d, Update{"$set": map[string]any{"name": "new"}})
	require.NoError(t, err)
	name, _ := d["name"].AsString()
	require.Equal(t, "old", name)
}

func TestApplyUpdateUnsupportedOperator(t *testing.T) {
	d := doc(map[string]document.Value{})
	_, err := ApplyUpdate(d, Update{"$bogus": map[string]any{"x": 1}})
	require.Error(t, err)
}
