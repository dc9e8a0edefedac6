// Package textdiff produces recursive unified diffs of two directory trees,
// shaped like "diff -udNr" output with binary file notices dropped. It uses
// github.com/pmezard/go-difflib/difflib for the unified hunks (---/+++
// headers, @@ hunks, lines prefixed with ' ', '-', '+').
package textdiff

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// binarySniffLen bounds how much of a file is inspected for NUL bytes
const binarySniffLen = 8000

// DirDiff recursively diffs fromRoot against toRoot, writing unified diff
// text to w. File paths in the output are labelled fromLabel/toLabel the way
// "diff -r" labels them with its two arguments. Files present on only one
// side are diffed against empty content (the -N behaviour). Binary files
// count as changed but produce no output lines.
//
// The changed return distinguishes "differences found" from "trees
// identical"; both are success. An error means the diff could not be
// produced at all.
func DirDiff(w io.Writer, fromRoot, toRoot, fromLabel, toLabel string) (bool, error) {
	fromInfo, err := os.Stat(fromRoot)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", fromRoot, err)
	}
	toInfo, err := os.Stat(toRoot)
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", toRoot, err)
	}

	// Two plain files diff directly
	if !fromInfo.IsDir() && !toInfo.IsDir() {
		return diffOne(w, fromRoot, toRoot, fromLabel, toLabel)
	}
	if fromInfo.IsDir() != toInfo.IsDir() {
		return false, fmt.Errorf("cannot compare directory with file: %s vs %s", fromRoot, toRoot)
	}

	names, err := unionFiles(fromRoot, toRoot)
	if err != nil {
		return false, err
	}

	changed := false
	for _, rel := range names {
		fileChanged, err := diffOne(w,
			filepath.Join(fromRoot, rel),
			filepath.Join(toRoot, rel),
			path.Join(fromLabel, filepath.ToSlash(rel)),
			path.Join(toLabel, filepath.ToSlash(rel)),
		)
		if err != nil {
			return changed, err
		}
		changed = changed || fileChanged
	}
	return changed, nil
}

// diffOne diffs a single file pair. A missing file on either side reads as
// empty content.
func diffOne(w io.Writer, fromPath, toPath, fromLabel, toLabel string) (bool, error) {
	a, err := readOrEmpty(fromPath)
	if err != nil {
		return false, err
	}
	b, err := readOrEmpty(toPath)
	if err != nil {
		return false, err
	}

	if bytes.Equal(a, b) {
		return false, nil
	}

	// Binary files differ but their notice lines are stripped from the
	// output, matching the sed filter the engine always applied
	if isBinary(a) || isBinary(b) {
		return true, nil
	}

	fmt.Fprintf(w, "diff -udNr %s %s\n", fromLabel, toLabel)
	diff := difflib.UnifiedDiff{
		A:        splitLinesKeepNL(string(a)),
		B:        splitLinesKeepNL(string(b)),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  3,
	}
	if err := difflib.WriteUnifiedDiff(w, diff); err != nil {
		return true, fmt.Errorf("write unified diff for %s: %w", fromLabel, err)
	}
	return true, nil
}

// unionFiles returns the sorted union of file paths relative to both roots
func unionFiles(fromRoot, toRoot string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, root := range []string{fromRoot, toRoot} {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			seen[rel] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	names := make([]string, 0, len(seen))
	for rel := range seen {
		names = append(names, rel)
	}
	sort.Strings(names)
	return names, nil
}

func readOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// splitLinesKeepNL splits into lines keeping newline characters, which
// produces correct unified hunks
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return []string{}
	}
	lines := strings.SplitAfter(s, "\n")
	// SplitAfter leaves a trailing empty element when s ends with a newline
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
