package logstore

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

const (
	LogFileSuffix   = ".log"
	IndexFileSuffix = ".index"

	// baseOffsetWidth is wide enough for any int64 base offset, zero-padded,
	// matching the teacher's fixed-width segment naming convention.
	baseOffsetWidth = 20
)

// segmentFileName renders a segment's base offset as its zero-padded stem
// plus the .log suffix, e.g. "00000000000000001000.log".
func segmentFileName(baseOffset int64) string {
	return fmt.Sprintf("%0*d%s", baseOffsetWidth, baseOffset, LogFileSuffix)
}

func parseBaseOffset(logFileName string) (int64, error) {
	if !strings.HasSuffix(logFileName, LogFileSuffix) {
		return 0, ErrBadSegmentName
	}
	stem := strings.TrimSuffix(logFileName, LogFileSuffix)
	if len(stem) != baseOffsetWidth {
		return 0, ErrBadSegmentName
	}
	n, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, ErrBadSegmentName
	}
	return n, nil
}

// listSegmentBaseOffsets returns the base offsets of every .log file found
// directly under dir, sorted ascending.
func listSegmentBaseOffsets(dir string) ([]int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var offsets []int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), LogFileSuffix) {
			continue
		}
		base, err := parseBaseOffset(e.Name())
		if err != nil {
			continue
		}
		offsets = append(offsets, base)
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	return offsets, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
