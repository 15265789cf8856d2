package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"samplevault/internal/errors"
)

func TestMatcherAll(t *testing.T) {
	m := NewMatcher(All())

	assert.True(t, m.Matches("samples/kicks/kick_01.wav"))
	assert.True(t, m.Matches(""))
}

func TestMatcherFiles(t *testing.T) {
	sel := ForFiles([]string{
		`samples\kicks\kick_01.wav`,
		"samples/snares/snare_02.wav",
		"",
	})
	m := NewMatcher(sel)

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"exact match", "samples/kicks/kick_01.wav", true},
		{"backslash input normalized", `samples\snares\snare_02.wav`, true},
		{"redundant segments normalized", "samples/kicks/../kicks/kick_01.wav", true},
		{"other file", "samples/kicks/kick_02.wav", false},
		{"empty key", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.key))
		})
	}
}

func TestMatcherFolders(t *testing.T) {
	sel := ForFolders([]string{"samples/kicks", `loops\drums\`})
	m := NewMatcher(sel)

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"direct child", "samples/kicks/kick_01.wav", true},
		{"nested child", "samples/kicks/808/boom.wav", true},
		{"backslash folder spec", "loops/drums/break.wav", true},
		{"sibling folder not matched", "samples/kicksnare/x.wav", false},
		{"folder itself is not a file", "samples/kicks", false},
		{"outside scope", "vocals/take1.wav", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.key))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sel     *Selection
		wantErr bool
	}{
		{"all is valid", All(), false},
		{"files with paths", ForFiles([]string{"a.wav"}), false},
		{"folders with dirs", ForFolders([]string{"samples"}), false},
		{"files empty", ForFiles(nil), true},
		{"files only blanks", ForFiles([]string{"", ""}), true},
		{"folders empty", ForFolders(nil), true},
		{"unknown mode", &Selection{Mode: "recent"}, true},
		{"missing mode", &Selection{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, errors.ErrCodeInvalidSelection, errors.GetCode(err))
				assert.True(t, errors.IsValidation(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	sel := ForFolders([]string{"samples/kicks", "loops"})

	raw, err := sel.Encode()
	require.NoError(t, err)

	got, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, sel.Mode, got.Mode)
	assert.Equal(t, sel.Folders, got.Folders)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse("{not json")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidSelection, errors.GetCode(err))

	_, err = Parse(`{"mode":"files"}`)
	require.Error(t, err)
}

func TestPredicateShapes(t *testing.T) {
	clause, args, err := All().Predicate()
	require.NoError(t, err)
	assert.Equal(t, "1=1", clause)
	assert.Empty(t, args)

	clause, args, err = ForFiles([]string{"a.wav", `b\c.wav`}).Predicate()
	require.NoError(t, err)
	assert.Equal(t, "key IN (?,?)", clause)
	assert.Equal(t, []any{"a.wav", "b/c.wav"}, args)

	clause, args, err = ForFolders([]string{"samples"}).Predicate()
	require.NoError(t, err)
	assert.Equal(t, "(substr(key, 1, ?) = ?)", clause)
	assert.Equal(t, []any{8, "samples/"}, args)
}

func TestPredicateRejectsInvalid(t *testing.T) {
	_, _, err := (&Selection{Mode: "bogus"}).Predicate()
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidSelection, errors.GetCode(err))
}

func TestGateClause(t *testing.T) {
	clause, args, err := Gate{Field: FieldEmbed, Version: "clap-v1"}.Clause()
	require.NoError(t, err)
	assert.Equal(t, "embed_version != ?", clause)
	assert.Equal(t, []any{"clap-v1"}, args)

	_, _, err = Gate{Field: "name; DROP TABLE files"}.Clause()
	require.Error(t, err)
}
