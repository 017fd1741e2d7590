package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarshalCanonical tests key ordering, escaping and normalization.
func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   IRValue
		want string
	}{
		{"sorted keys", IRObject{"b": IRInt(1), "a": IRString("x")}, `{"a":"x","b":1}`},
		{"nested", IRObject{"z": IRArray{IRBool(true), IRInt(-3)}}, `{"z":[true,-3]}`},
		{"no html escaping", IRString("a<b&c"), `"a<b&c"`},
		{"nfc", IRString("e\u0301"), "\"\u00e9\""},
		{"line separator literal", IRString("a\u2028b"), "\"a\u2028b\""},
		{"escaped quote", IRString(`say "hi"`), `"say \"hi\""`},
		{"empty array", IRArray{}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

// TestMarshalCanonicalRejectsNull tests that nil values are errors.
func TestMarshalCanonicalRejectsNull(t *testing.T) {
	_, err := MarshalCanonical(IRObject{"a": nil})
	assert.Error(t, err)
}

// TestSortedKeysUTF16 tests ordering by UTF-16 code units.
func TestSortedKeysUTF16(t *testing.T) {
	obj := IRObject{"b": IRInt(0), "a": IRInt(0), "A": IRInt(0), "é": IRInt(0)}
	assert.Equal(t, []string{"A", "a", "b", "é"}, obj.SortedKeys())
}
