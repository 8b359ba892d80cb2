package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelpersBeforeInitAreNoops(t *testing.T) {
	Logger = nil
	Info("ignored")
	Error("ignored", "err", "x")
	assert.Nil(t, WithPrefix("engine"))
}

func TestInitWriterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "warn"))
	defer func() { Logger = nil }()

	Info("hidden")
	Warn("search failed", "term", "xyz")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "search failed")
	assert.Contains(t, out, "term=xyz")
}

func TestInitWriterRejectsBadLevel(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, InitWriter(&buf, "loud"))
}

func TestInitCreatesDatedFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, Init(dir, "debug"))
	Close()
	Logger = nil

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Regexp(t, `^geocomplete-\d{4}-\d{2}-\d{2}\.log$`, entries[0].Name())
}
