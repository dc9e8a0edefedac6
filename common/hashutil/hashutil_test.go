package hashutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrodissect/dissector/common/models"
)

func TestSha256File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	sum, err := Sha256File(path)
	require.NoError(t, err)
	// Known digest of "hello"
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)
}

func TestSha256File_Missing(t *testing.T) {
	_, err := Sha256File(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestPatchBodyHash_IgnoresFromHeader(t *testing.T) {
	patchA := strings.Join([]string{
		"--- a/foo.c\t2019-01-01 10:00:00",
		"+++ b/foo.c",
		"@@ -1 +1 @@",
		"-old",
		"+new",
	}, "\n")
	patchB := strings.Join([]string{
		"--- /work/checkout/foo.c\t2023-06-07 09:30:00",
		"+++ b/foo.c",
		"@@ -1 +1 @@",
		"-old",
		"+new",
	}, "\n")

	hashA, err := PatchBodyHash(strings.NewReader(patchA))
	require.NoError(t, err)
	hashB, err := PatchBodyHash(strings.NewReader(patchB))
	require.NoError(t, err)
	assert.Equal(t, hashA, hashB, "varying --- headers must not change the hash")
}

func TestPatchBodyHash_ToHeaderContentCounts(t *testing.T) {
	patchA := "+++ b/foo.c\n@@ -1 +1 @@\n-old\n+new\n"
	patchB := "+++ b/bar.c\n@@ -1 +1 @@\n-old\n+new\n"

	hashA, err := PatchBodyHash(strings.NewReader(patchA))
	require.NoError(t, err)
	hashB, err := PatchBodyHash(strings.NewReader(patchB))
	require.NoError(t, err)
	assert.NotEqual(t, hashA, hashB, "the +++ target path is part of the patch identity")
}

func TestCheckRelPath(t *testing.T) {
	assert.NoError(t, CheckRelPath("meta/recipes-core/busybox"))
	assert.NoError(t, CheckRelPath("a/b.c"))
	assert.Error(t, CheckRelPath("../etc/passwd"))
	assert.Error(t, CheckRelPath("a/../../b"))
	assert.Error(t, CheckRelPath("/etc/passwd"))
}

func TestParsePatchStatus(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		want      models.PatchStatus
		wantExtra string
	}{
		{
			name: "backport",
			body: "Fix crash on resize\n\nUpstream-Status: Backport\n\n--- a/f\n+++ b/f\n",
			want: models.PatchStatusBackport,
		},
		{
			name:      "pending with annotation",
			body:      "Upstream_Status: Pending  needs rebase\n--- a/f\n+++ b/f\n",
			want:      models.PatchStatusPending,
			wantExtra: "needs rebase",
		},
		{
			name: "status after first hunk is ignored",
			body: "diff -u a/f b/f\nUpstream-Status: Accepted\n",
			want: models.PatchStatusUnknown,
		},
		{
			name: "no status",
			body: "just a description\n--- a/f\n+++ b/f\n",
			want: models.PatchStatusUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, extra, err := ParsePatchStatus(strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.wantExtra, extra)
		})
	}
}
