// Package pathkey canonicalizes path-like keys so that rows in the
// relational store and entries in vector shard files compare equal even
// when their separators differ. Both storage forms always hold keys in
// this canonical form; raw user input is normalized at every boundary.
package pathkey

import (
	"path"
	"strings"
)

// Normalize returns the canonical form of a path-like key:
// forward slashes, cleaned, no trailing slash. Empty input stays empty.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	s := strings.ReplaceAll(p, `\`, "/")
	s = path.Clean(s)
	if s == "." {
		return ""
	}
	return s
}

// Prefix returns the canonical folder prefix used for prefix-scope
// matching. The returned prefix always ends with a slash so that
// "samples/kick" does not match "samples/kicks_v2/boom.wav".
func Prefix(folder string) string {
	n := Normalize(folder)
	if n == "" {
		return ""
	}
	if !strings.HasSuffix(n, "/") {
		n += "/"
	}
	return n
}

// Base returns the last element of a canonical key.
func Base(key string) string {
	return path.Base(Normalize(key))
}

// Dir returns the parent of a canonical key, "" for top-level keys.
func Dir(key string) string {
	d := path.Dir(Normalize(key))
	if d == "." || d == "/" {
		return ""
	}
	return d
}
