package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalSortsKeys(t *testing.T) {
	obj := Object{
		"b": Int(2),
		"a": String("x"),
		"c": Array{Bool(true), Bool(false)},
	}

	data, err := Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":2,"c":[true,false]}`, string(data))
}

func TestMarshalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D 0xDE00, which sort before U+FB01
	// in UTF-16 even though the UTF-8 bytes sort after it.
	obj := Object{
		"\uFB01":     Int(1),
		"\U0001F600": Int(2),
	}

	assert.Equal(t, []string{"\U0001F600", "\uFB01"}, obj.SortedKeys())
}

func TestMarshalNoHTMLEscape(t *testing.T) {
	data, err := Marshal(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalLineSeparators(t *testing.T) {
	data, err := Marshal(String("a\u2028b"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\"", string(data))

	// A literal backslash followed by the text u2028 stays escaped.
	data, err = Marshal(String("a\\u2028"))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(data))
}

func TestMarshalNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to U+00E9.
	data, err := Marshal(String("cafe\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"caf\u00e9\"", string(data))
}

func TestMarshalRejectsNil(t *testing.T) {
	_, err := Marshal(Object{"a": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null is forbidden")
}

func TestFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Value
		wantErr string
	}{
		{name: "object", input: `{"n":1,"s":"x"}`, want: Object{"n": Int(1), "s": String("x")}},
		{name: "array", input: `[true,2]`, want: Array{Bool(true), Int(2)}},
		{name: "large int", input: `9007199254740993`, want: Int(9007199254740993)},
		{name: "null", input: `{"a":null}`, wantErr: "null is forbidden"},
		{name: "float", input: `1.5`, wantErr: "floats are forbidden"},
		{name: "exponent", input: `1e3`, wantErr: "floats are forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromJSON([]byte(tt.input))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDigestDeterminism(t *testing.T) {
	type doc struct {
		Name  string            `json:"name"`
		Tags  map[string]string `json:"tags"`
		Order []string          `json:"order"`
	}
	v := doc{Name: "site", Tags: map[string]string{"z": "1", "a": "2"}, Order: []string{"b", "a"}}

	d1, err := DigestOf("test/v1", v)
	require.NoError(t, err)
	d2, err := DigestOf("test/v1", v)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Len(t, d1, 64)
}

func TestDigestDomainSeparation(t *testing.T) {
	v := Object{"a": Int(1)}

	d1, err := Digest("test/a/v1", v)
	require.NoError(t, err)
	d2, err := Digest("test/b/v1", v)
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestDigestSliceOrderMatters(t *testing.T) {
	d1, err := DigestOf("test/v1", []string{"a", "b"})
	require.NoError(t, err)
	d2, err := DigestOf("test/v1", []string{"b", "a"})
	require.NoError(t, err)

	assert.NotEqual(t, d1, d2)
}

func TestEncode(t *testing.T) {
	data, err := Encode(map[string]any{"b": 1, "a": "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"a":"x","b":1}`, string(data))
}
