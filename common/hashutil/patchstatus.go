package hashutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/distrodissect/dissector/common/models"
)

var patchStatusRe = regexp.MustCompile(`(?i)^[\t ]*(Upstream[-_ ]Status:?)[\t ]*(\w+)([\t ]+.*)?`)

var patchStatusLabels = map[models.PatchStatus]string{
	models.PatchStatusUnknown:       "Unknown",
	models.PatchStatusAccepted:      "Accepted",
	models.PatchStatusPending:       "Pending",
	models.PatchStatusInappropriate: "Inappropriate",
	models.PatchStatusBackport:      "Backport",
	models.PatchStatusSubmitted:     "Submitted",
	models.PatchStatusDenied:        "Denied",
}

// ParsePatchStatus scans a patch's preamble for an Upstream-Status header.
// Scanning stops at the first hunk marker; patches without a recognizable
// header report Unknown. The extra return carries any trailing annotation
// on the status line.
func ParsePatchStatus(r io.Reader) (models.PatchStatus, string, error) {
	status := models.PatchStatusUnknown
	extra := ""

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if strings.HasPrefix(line, "Index: ") || strings.HasPrefix(line, "diff -") || strings.HasPrefix(line, "+++ ") {
			break
		}
		res := patchStatusRe.FindStringSubmatch(line)
		if res == nil {
			continue
		}
		match := strings.ToLower(res[2])
		for key, label := range patchStatusLabels {
			if match == strings.ToLower(label) {
				status = key
				if res[3] != "" {
					extra = strings.TrimSpace(res[3])
				}
				break
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return status, extra, fmt.Errorf("read patch: %w", err)
	}
	return status, extra, nil
}

// ParsePatchStatusFile applies ParsePatchStatus to the file at path
func ParsePatchStatusFile(path string) (models.PatchStatus, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.PatchStatusUnknown, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ParsePatchStatus(f)
}
