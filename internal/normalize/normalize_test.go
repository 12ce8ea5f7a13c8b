package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trims and uppercases", in: "  abc-12 ", want: "ABC-12"},
		{name: "keeps leading zeros", in: "00123", want: "00123"},
		{name: "greek", in: "αβγ1", want: "ΑΒΓ1"},
		{name: "empty", in: "   ", want: ""},
		{name: "interior spaces kept", in: "a b", want: "A B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestStripLeadingZeros(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "00123", want: "123"},
		{in: "123", want: "123"},
		{in: "000", want: "0"},
		{in: "0", want: "0"},
		{in: "", want: "0"},
		{in: "0A0", want: "A0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripLeadingZeros(tt.in))
		})
	}
}

func TestKey(t *testing.T) {
	n, z := Key(" 0042x ")
	assert.Equal(t, "0042X", n)
	assert.Equal(t, "42X", z)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "ΣΥΡΜΑ ΓΑΛΒΑΝΙΖΕ", Label("Σύρμα γαλβανιζέ"))
	assert.Equal(t, "ΗΛΕΚΤΡΟΔΙΟ", Label("ηλεκτρόδιο"))
	assert.Equal(t, "STEEL WIRE", Label("steel wire"))
	assert.Equal(t, "", Label(""))
}
