// Package selection implements the declarative scope that every job and
// search query is evaluated against. A Selection is pure data: it can be
// serialized into a job record, matched in memory against normalized keys
// from index shards, or compiled into a SQL predicate for the store. Both
// evaluation forms agree on the same key set for a fixed snapshot.
package selection

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"samplevault/internal/errors"
	"samplevault/internal/pathkey"
)

// Mode determines how a Selection scopes the library.
type Mode string

const (
	// ModeAll selects every library row.
	ModeAll Mode = "all"
	// ModeFiles selects an explicit set of file paths.
	ModeFiles Mode = "files"
	// ModeFolders selects everything under one or more folder prefixes.
	ModeFolders Mode = "folders"
)

// VersionField names a per-file version column a job gates on.
type VersionField string

const (
	FieldEmbed  VersionField = "embed_version"
	FieldTag    VersionField = "tag_version"
	FieldName   VersionField = "name_version"
	FieldRename VersionField = "rename_version"
)

// Column returns the store column for the field. Fields are whitelisted
// so a gate can never inject arbitrary SQL.
func (f VersionField) Column() (string, error) {
	switch f {
	case FieldEmbed, FieldTag, FieldName, FieldRename:
		return string(f), nil
	}
	return "", errors.New(errors.ErrCodeInvalidSelection,
		fmt.Sprintf("unknown version field %q", string(f)), nil)
}

// Gate is the "not yet at version V" filter a worker contributes on top
// of a job's Selection. Rows whose field already equals Version are
// skipped without being handed to the worker.
type Gate struct {
	Field   VersionField
	Version string
}

// Clause returns the SQL fragment and args excluding already-current rows.
func (g Gate) Clause() (string, []any, error) {
	col, err := g.Field.Column()
	if err != nil {
		return "", nil, err
	}
	return col + " != ?", []any{g.Version}, nil
}

// Selection is the serializable scope stored on a job record.
type Selection struct {
	Mode    Mode     `json:"mode"`
	Files   []string `json:"files,omitempty"`
	Folders []string `json:"folders,omitempty"`
}

// All returns a Selection covering the whole library.
func All() *Selection {
	return &Selection{Mode: ModeAll}
}

// ForFiles returns a Selection over an explicit path list.
func ForFiles(paths []string) *Selection {
	return &Selection{Mode: ModeFiles, Files: paths}
}

// ForFolders returns a Selection over folder subtrees.
func ForFolders(folders []string) *Selection {
	return &Selection{Mode: ModeFolders, Folders: folders}
}

// Parse decodes a Selection from its stored JSON form.
func Parse(raw string) (*Selection, error) {
	var sel Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return nil, errors.New(errors.ErrCodeInvalidSelection,
			"malformed selection JSON", err)
	}
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	return &sel, nil
}

// Encode serializes the Selection for storage on a job record.
func (s *Selection) Encode() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidSelection,
			"failed to encode selection", err)
	}
	return string(data), nil
}

// Validate rejects selections that could never match anything sensible.
func (s *Selection) Validate() error {
	switch s.Mode {
	case ModeAll:
		return nil
	case ModeFiles:
		if len(s.normalizedFiles()) == 0 {
			return errors.New(errors.ErrCodeInvalidSelection,
				"files selection contains no usable paths", nil)
		}
		return nil
	case ModeFolders:
		if len(s.normalizedPrefixes()) == 0 {
			return errors.New(errors.ErrCodeInvalidSelection,
				"folders selection contains no usable folders", nil)
		}
		return nil
	}
	return errors.New(errors.ErrCodeInvalidSelection,
		fmt.Sprintf("unknown selection mode %q", string(s.Mode)), nil)
}

func (s *Selection) normalizedFiles() []string {
	out := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		if n := pathkey.Normalize(f); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func (s *Selection) normalizedPrefixes() []string {
	out := make([]string, 0, len(s.Folders))
	for _, d := range s.Folders {
		if p := pathkey.Prefix(d); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Matcher is the in-memory evaluation form, used when filtering shard
// entries during search and tagging. Construct once per scan.
type Matcher struct {
	mode     Mode
	fileSet  map[string]struct{}
	prefixes []string
}

// NewMatcher compiles the Selection for repeated key matching.
func NewMatcher(s *Selection) *Matcher {
	m := &Matcher{mode: s.Mode}
	switch s.Mode {
	case ModeFiles:
		files := s.normalizedFiles()
		m.fileSet = make(map[string]struct{}, len(files))
		for _, f := range files {
			m.fileSet[f] = struct{}{}
		}
	case ModeFolders:
		m.prefixes = s.normalizedPrefixes()
	}
	return m
}

// Matches reports whether a normalized key falls inside the scope. The
// key is normalized again so callers may pass raw paths.
func (m *Matcher) Matches(key string) bool {
	switch m.mode {
	case ModeAll:
		return true
	case ModeFiles:
		_, ok := m.fileSet[pathkey.Normalize(key)]
		return ok
	case ModeFolders:
		norm := pathkey.Normalize(key)
		for _, prefix := range m.prefixes {
			if strings.HasPrefix(norm, prefix) {
				return true
			}
		}
		return false
	}
	return false
}

// Predicate compiles the Selection into a SQL fragment over the files
// table's key column, with positional args. Folder prefixes compare via
// substr rather than LIKE so keys containing wildcard characters match
// exactly the way Matcher does.
func (s *Selection) Predicate() (string, []any, error) {
	if err := s.Validate(); err != nil {
		return "", nil, err
	}
	switch s.Mode {
	case ModeAll:
		return "1=1", nil, nil
	case ModeFiles:
		files := s.normalizedFiles()
		placeholders := make([]string, len(files))
		args := make([]any, len(files))
		for i, f := range files {
			placeholders[i] = "?"
			args[i] = f
		}
		return "key IN (" + strings.Join(placeholders, ",") + ")", args, nil
	case ModeFolders:
		prefixes := s.normalizedPrefixes()
		clauses := make([]string, len(prefixes))
		args := make([]any, 0, len(prefixes)*2)
		for i, p := range prefixes {
			// substr counts characters, not bytes.
			clauses[i] = "substr(key, 1, ?) = ?"
			args = append(args, utf8.RuneCountInString(p), p)
		}
		return "(" + strings.Join(clauses, " OR ") + ")", args, nil
	}
	return "", nil, errors.New(errors.ErrCodeInvalidSelection,
		fmt.Sprintf("unknown selection mode %q", string(s.Mode)), nil)
}
