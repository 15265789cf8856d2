package pathkey

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
		{"empty", "", ""},
		{"already canonical", "samples/kicks/boom.wav", "samples/kicks/boom.wav"},
		{"windows separators", `samples\kicks\boom.wav`, "samples/kicks/boom.wav"},
		{"redundant segments", "samples//kicks/./boom.wav", "samples/kicks/boom.wav"},
		{"trailing slash", "samples/kicks/", "samples/kicks"},
		{"parent segments", "samples/../samples/kicks/boom.wav", "samples/kicks/boom.wav"},
		{"dot only", ".", ""},
		{"absolute", "/library/samples/boom.wav", "/library/samples/boom.wav"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_MixedSeparatorsAgree(t *testing.T) {
	// The same file recorded by two producers must land on one key.
	a := Normalize(`C:\library\drums\snare.wav`)
	b := Normalize("C:/library/drums/snare.wav")
	assert.Equal(t, a, b)
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "samples/kicks/", Prefix("samples/kicks"))
	assert.Equal(t, "samples/kicks/", Prefix(`samples\kicks\`))
	assert.Equal(t, "", Prefix(""))
}

func TestBaseAndDir(t *testing.T) {
	assert.Equal(t, "boom.wav", Base(`samples\kicks\boom.wav`))
	assert.Equal(t, "samples/kicks", Dir("samples/kicks/boom.wav"))
	assert.Equal(t, "", Dir("boom.wav"))
}
