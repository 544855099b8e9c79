package document_test

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/document"
)

func allKinds() *document.Document {
	return document.New(
		document.F("text", document.String(`a"b`)),
		document.F("int", document.Int(-42)),
		document.F("float", document.Float(3.25)),
		document.F("whole", document.Float(2)),
		document.F("flag", document.Bool(true)),
		document.F("nothing", document.Null()),
	)
}

func TestSimpleEncoder_Contract(t *testing.T) {
	t.Parallel()

	enc := document.SimpleEncoder{}

	tests := []struct {
		name string
		doc  *document.Document
		want string
	}{
		{name: "nil", doc: nil, want: `{}`},
		{name: "empty", doc: document.New(), want: `{}`},
		{name: "quote escaped", doc: document.New(document.F("s", document.String(`a"b`))), want: `{"s":"a\"b"}`},
		{name: "null is empty string", doc: document.New(document.F("n", document.Null())), want: `{"n":""}`},
		{
			name: "scalars bare",
			doc: document.New(
				document.F("i", document.Int(7)),
				document.F("f", document.Float(1.5)),
				document.F("b", document.Bool(false)),
			),
			want: `{"i":7,"f":1.5,"b":false}`,
		},
		{name: "integral float keeps fraction", doc: document.New(document.F("f", document.Float(1))), want: `{"f":1.0}`},
		{name: "control chars", doc: document.New(document.F("s", document.String("a\\b\n\x01"))), want: `{"s":"a\\b\n\u0001"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := enc.Encode(tt.doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.True(t, json.Valid(got))
		})
	}
}

func TestSimpleEncoder_RejectsKeysNeedingEscape(t *testing.T) {
	t.Parallel()

	for _, key := range []string{`a"b`, `a\b`, "a\nb", "a\xffb"} {
		_, err := document.SimpleEncoder{}.Encode(document.New(document.F(key, document.Int(1))))
		require.ErrorIs(t, err, document.ErrInvalidKey, key)
	}
}

func TestSimpleEncoder_RejectsInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, err := document.SimpleEncoder{}.Encode(document.New(document.F("k", document.String("a\xffb"))))
	require.ErrorIs(t, err, document.ErrUnsupportedValue)

	got, err := document.SimpleEncoder{}.Encode(document.New(document.F("k", document.String("café"))))
	require.NoError(t, err)
	assert.True(t, json.Valid(got))
	assert.JSONEq(t, `{"k":"café"}`, string(got))
}

func TestEncoders_RejectNonFiniteFloats(t *testing.T) {
	t.Parallel()

	for _, enc := range []document.Encoder{document.SimpleEncoder{}, document.JSONEncoder{}} {
		for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, err := enc.Encode(document.New(document.F("f", document.Float(f))))
			require.ErrorIs(t, err, document.ErrUnsupportedValue)
		}
	}
}

func TestJSONEncoder_KeepsOrderAndNull(t *testing.T) {
	t.Parallel()

	got, err := document.JSONEncoder{}.Encode(allKinds())
	require.NoError(t, err)
	assert.Equal(t,
		`{"text":"a\"b","int":-42,"float":3.25,"whole":2.0,"flag":true,"nothing":null}`,
		string(got))
}

func TestJSONEncoder_EscapesKeys(t *testing.T) {
	t.Parallel()

	got, err := document.JSONEncoder{}.Encode(document.New(document.F(`we"ird`, document.Int(1))))
	require.NoError(t, err)
	assert.True(t, json.Valid(got))

	back, err := document.Decode(got)
	require.NoError(t, err)
	_, ok := back.Get(`we"ird`)
	assert.True(t, ok)
}

func TestJSONEncoder_RoundTrip(t *testing.T) {
	t.Parallel()

	orig := allKinds()
	payload, err := document.JSONEncoder{}.Encode(orig)
	require.NoError(t, err)

	back, err := document.Decode(payload)
	require.NoError(t, err)
	require.Equal(t, orig.Len(), back.Len())
	for _, f := range orig.Fields() {
		got, ok := back.Get(f.Name)
		require.True(t, ok, f.Name)
		assert.True(t, f.Value.Equal(got), "%s: got %#v want %#v", f.Name, got, f.Value)
	}
}

func TestSimpleEncoder_RoundTrip(t *testing.T) {
	t.Parallel()

	orig := allKinds()
	payload, err := document.SimpleEncoder{}.Encode(orig)
	require.NoError(t, err)

	back, err := document.Decode(payload)
	require.NoError(t, err)

	text, _ := back.Get("text")
	s, ok := text.Str()
	require.True(t, ok)
	assert.Equal(t, `a"b`, s)

	for _, name := range []string{"int", "float", "whole", "flag"} {
		want, _ := orig.Get(name)
		got, _ := back.Get(name)
		assert.True(t, want.Equal(got), name)
	}

	nothing, _ := back.Get("nothing")
	assert.True(t, nothing.Equal(document.String("")))
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	_, err := document.Decode([]byte(`{"a":[1,2]}`))
	require.ErrorIs(t, err, document.ErrUnsupportedValue)

	_, err = document.Decode([]byte(`{"a":`))
	require.Error(t, err)

	for _, payload := range []string{`{"a":1} garbage`, `{"a":1} {"b":2}`, `{"a":1}]`} {
		doc, decErr := document.Decode([]byte(payload))
		require.ErrorIs(t, decErr, document.ErrTrailingData, payload)
		assert.Nil(t, doc)
	}

	doc, err := document.Decode([]byte("  {\"a\":1}\n\t "))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Len())
}

func TestNewEncoder(t *testing.T) {
	t.Parallel()

	enc, err := document.NewEncoder("simple")
	require.NoError(t, err)
	assert.IsType(t, document.SimpleEncoder{}, enc)

	enc, err = document.NewEncoder("")
	require.NoError(t, err)
	assert.IsType(t, document.JSONEncoder{}, enc)

	_, err = document.NewEncoder("xml")
	require.Error(t, err)
}

func TestEncoderFunc(t *testing.T) {
	t.Parallel()

	enc := document.EncoderFunc(func(*document.Document) ([]byte, error) { return []byte(`{"x":1}`), nil })
	got, err := enc.Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))
}
