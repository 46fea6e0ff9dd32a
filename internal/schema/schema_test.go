// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package schema

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperviz/pkg/types"
)

// propertyKeys returns the top-level property names of a marshaled schema
// in document order.
func propertyKeys(t *testing.T, data []byte) []string {
	t.Helper()
	var doc struct {
		Properties json.RawMessage `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	dec := json.NewDecoder(bytes.NewReader(doc.Properties))
	tok, err := dec.Token()
	require.NoError(t, err)
	require.Equal(t, json.Delim('{'), tok)

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

func TestMarshaledSchemaPutsReasoningFirst(t *testing.T) {
	for _, kind := range types.AllKinds {
		if !kind.Structured() {
			continue
		}
		t.Run(string(kind), func(t *testing.T) {
			sch, err := Lookup(kind)
			require.NoError(t, err)

			data, err := sch.JSON()
			require.NoError(t, err)

			keys := propertyKeys(t, data)
			require.NotEmpty(t, keys)
			assert.Equal(t, ReasoningField, keys[0])
			assert.Equal(t, sch.Ordering, keys)
		})
	}
}

func TestLookup(t *testing.T) {
	sch, err := Lookup(types.KindAnalysis)
	require.NoError(t, err)
	assert.False(t, sch.Structured())
	assert.Nil(t, sch.Required())

	poster, err := Lookup(types.KindPoster)
	require.NoError(t, err)
	assert.Equal(t, []string{ReasoningField, "title", "abstract", "methods", "results", "conclusion"}, poster.Required())

	_, err = Lookup(types.OutputKind("VIDEO"))
	assert.Error(t, err)
}
