package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleWidthSkipsANSIEscapes(t *testing.T) {
	assert.Equal(t, 5, visibleWidth("hello"))
	assert.Equal(t, 5, visibleWidth("\x1b[32mhello\x1b[0m"))
	assert.Equal(t, 0, visibleWidth(""))
	// Wide runes count double.
	assert.Equal(t, 4, visibleWidth("日本"))
}

func TestTableAlignsColumns(t *testing.T) {
	table := NewTable("ID", "NAME", "STATUS")
	table.AddRow("1", "backend", "running")
	table.AddRow("12", "db", "stopped")

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)

	// The NAME column starts at the same offset in every row.
	assert.Contains(t, lines[1], "1   backend  running")
	assert.Contains(t, lines[2], "12  db       stopped")
}

func TestTableHandlesShortRows(t *testing.T) {
	table := NewTable("A", "B")
	table.AddRow("x")

	var buf bytes.Buffer
	table.Render(&buf)
	assert.Contains(t, buf.String(), "x")
}

func TestEmptyTableRendersNothing(t *testing.T) {
	table := &Table{}
	var buf bytes.Buffer
	table.Render(&buf)
	assert.Empty(t, buf.String())
}

func TestTableStyledCellsStayAligned(t *testing.T) {
	table := NewTable("NAME", "STATE")
	table.AddRow("api", StatusRunning())
	table.AddRow("database", StatusStopped())

	var buf bytes.Buffer
	table.Render(&buf)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	// Styled cells must not distort the computed widths.
	assert.True(t, strings.HasPrefix(lines[1], "api       "))
	assert.True(t, strings.HasPrefix(lines[2], "database  "))
}
