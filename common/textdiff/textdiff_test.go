package textdiff

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, content, 0o644))
	}
}

func TestDirDiff_IdenticalTrees(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()
	files := map[string][]byte{
		"main.c":      []byte("int main(void) { return 0; }\n"),
		"src/util.c":  []byte("void noop(void) {}\n"),
		"src/util.h":  []byte("void noop(void);\n"),
	}
	writeTree(t, from, files)
	writeTree(t, to, files)

	var buf bytes.Buffer
	changed, err := DirDiff(&buf, from, to, "pkg-1.0", "pkg-1.1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, buf.String())
}

func TestDirDiff_ChangedFile(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()
	writeTree(t, from, map[string][]byte{"main.c": []byte("old line\nshared\n")})
	writeTree(t, to, map[string][]byte{"main.c": []byte("new line\nshared\n")})

	var buf bytes.Buffer
	changed, err := DirDiff(&buf, from, to, "pkg-1.0", "pkg-1.1")
	require.NoError(t, err)
	assert.True(t, changed)

	out := buf.String()
	assert.Contains(t, out, "--- pkg-1.0/main.c")
	assert.Contains(t, out, "+++ pkg-1.1/main.c")
	assert.Contains(t, out, "-old line")
	assert.Contains(t, out, "+new line")
}

func TestDirDiff_AddedAndRemovedFiles(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()
	writeTree(t, from, map[string][]byte{"gone.txt": []byte("bye\n")})
	writeTree(t, to, map[string][]byte{"fresh.txt": []byte("hi\n")})

	var buf bytes.Buffer
	changed, err := DirDiff(&buf, from, to, "a", "b")
	require.NoError(t, err)
	assert.True(t, changed)

	out := buf.String()
	assert.Contains(t, out, "+hi")
	assert.Contains(t, out, "-bye")
}

func TestDirDiff_BinaryFilesProduceNoOutput(t *testing.T) {
	from := t.TempDir()
	to := t.TempDir()
	writeTree(t, from, map[string][]byte{"blob.bin": {0x7f, 0x45, 0x4c, 0x46, 0x00, 0x01}})
	writeTree(t, to, map[string][]byte{"blob.bin": {0x7f, 0x45, 0x4c, 0x46, 0x00, 0x02}})

	var buf bytes.Buffer
	changed, err := DirDiff(&buf, from, to, "a", "b")
	require.NoError(t, err)
	assert.True(t, changed, "binary differences still count as changes")
	assert.Empty(t, buf.String(), "binary notices are stripped from the output")
}

func TestDirDiff_MissingRoot(t *testing.T) {
	to := t.TempDir()
	var buf bytes.Buffer
	_, err := DirDiff(&buf, filepath.Join(t.TempDir(), "missing"), to, "a", "b")
	require.Error(t, err)
}

func TestDirDiff_SingleFiles(t *testing.T) {
	dir := t.TempDir()
	fromFile := filepath.Join(dir, "a.conf")
	toFile := filepath.Join(dir, "b.conf")
	require.NoError(t, os.WriteFile(fromFile, []byte("k=1\n"), 0o644))
	require.NoError(t, os.WriteFile(toFile, []byte("k=2\n"), 0o644))

	var buf bytes.Buffer
	changed, err := DirDiff(&buf, fromFile, toFile, "a.conf", "b.conf")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, strings.Contains(buf.String(), "-k=1"))
	assert.True(t, strings.Contains(buf.String(), "+k=2"))
}
