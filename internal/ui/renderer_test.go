package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainRendererLines(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(&buf)

	r.Progress(200, 0, 1000, "translating")
	r.Progress(400, 3, 1000, "translating")
	r.Done("job done")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "200/1000 processed")
	assert.Contains(t, lines[1], "3 failed")
	assert.Equal(t, "job done", lines[2])
}

func TestPlainRendererUnknownTotal(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainRenderer(&buf)
	r.Progress(5, 1, 0, "scanning")
	assert.Contains(t, buf.String(), "5 processed, 1 failed")
}

func TestStyledRendererBarFill(t *testing.T) {
	line := renderBar(15, 0, 30, "indexing")
	assert.Contains(t, line, "15/30")
	assert.Contains(t, line, "indexing")
	assert.Equal(t, 15, strings.Count(line, "█"))
	assert.Equal(t, 15, strings.Count(line, "░"))

	full := renderBar(30, 0, 30, "")
	assert.Equal(t, 30, strings.Count(full, "█"))
}

func TestStyledRendererShowsFailures(t *testing.T) {
	line := renderBar(8, 2, 10, "")
	assert.Contains(t, line, "10/10")
	assert.Contains(t, line, "2 failed")
}

func TestNewRendererPicksPlainForBuffer(t *testing.T) {
	var buf bytes.Buffer
	_, ok := NewRenderer(&buf).(*PlainRenderer)
	assert.True(t, ok)
}
