package patch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID     string   `json:"id"`
	ImdbID string   `json:"imdbId"`
	Title  string   `json:"title"`
	Genres []string `json:"genres"`
}

func TestDecodeRejectsMalformedBodies(t *testing.T) {
	for name, body := range map[string]string{
		"empty":      ``,
		"object":     `{"op":"replace","path":"/title","value":"x"}`,
		"broken":     `[{"op":"replace",`,
		"missing op": `[{"path":"/title","value":"x"}]`,
		"root path":  `[{"op":"replace","path":"","value":{}}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(body))
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestApplyToReplacesFields(t *testing.T) {
	p, err := Decode([]byte(`[
		{"op":"replace","path":"/title","value":"Inception"},
		{"op":"add","path":"/genres/-","value":"Sci-Fi"}
	]`))
	require.NoError(t, err)
	require.Len(t, p.Operations(), 2)

	var out record
	err = p.ApplyTo(record{ID: "1", ImdbID: "tt1375666", Title: "old", Genres: []string{"Action"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, record{ID: "1", ImdbID: "tt1375666", Title: "Inception", Genres: []string{"Action", "Sci-Fi"}}, out)
}

func TestApplyToStructuralFailures(t *testing.T) {
	cases := map[string]string{
		"unknown path":  `[{"op":"replace","path":"/missing","value":"x"}]`,
		"unknown field": `[{"op":"add","path":"/missing","value":"x"}]`,
		"type mismatch": `[{"op":"replace","path":"/title","value":42}]`,
		"failed test":   `[{"op":"test","path":"/title","value":"other"}]`,
		"bad op":        `[{"op":"upsert","path":"/title","value":"x"}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := Decode([]byte(body))
			if err != nil {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			var out record
			err = p.ApplyTo(record{ID: "1", Title: "old"}, &out)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestOperationTargets(t *testing.T) {
	assert.True(t, Operation{Op: "replace", Path: "/id"}.Targets("id"))
	assert.True(t, Operation{Op: "replace", Path: "/ID"}.Targets("id"))
	assert.True(t, Operation{Op: "remove", Path: "/reviewIds/0"}.Targets("reviewIds"))
	assert.True(t, Operation{Op: "move", From: "/id", Path: "/title"}.Targets("id"))
	assert.False(t, Operation{Op: "copy", From: "/id", Path: "/title"}.Targets("id"))
	assert.False(t, Operation{Op: "test", Path: "/id"}.Targets("id"))
	assert.False(t, Operation{Op: "replace", Path: "/imdbId"}.Targets("id"))
	assert.False(t, Operation{Op: "replace", Path: "/identifier"}.Targets("id"))
}

func TestOperationImdbHelpers(t *testing.T) {
	op := Operation{Op: "replace", Path: "/imdbId", Value: []byte(`"tt2"`)}
	assert.True(t, op.ReplacesExactly("imdbId"))
	v, err := op.StringValue()
	require.NoError(t, err)
	assert.Equal(t, "tt2", v)

	_, err = Operation{Op: "replace", Path: "/imdbId", Value: []byte(`7`)}.StringValue()
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = Operation{Op: "replace", Path: "/imdbId", Value: []byte(`null`)}.StringValue()
	assert.ErrorIs(t, err, ErrInvalid)

	assert.True(t, Operation{Op: "remove", Path: "/imdbId"}.Removes("imdbId"))
	assert.True(t, Operation{Op: "move", From: "/imdbId", Path: "/title"}.Removes("imdbId"))
	assert.False(t, Operation{Op: "replace", Path: "/imdbId"}.Removes("imdbId"))
}
