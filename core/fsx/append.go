package fsx

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxInt = int(^uint(0) >> 1)

// AppendLines appends one newline-terminated record per element in a single
// write and fsyncs before returning. Earlier content is never rewritten. The
// file is single-writer per process; no cross-process lock is taken.
func AppendLines(path string, lines [][]byte, mode os.FileMode) error {
	if len(lines) == 0 {
		return nil
	}
	cleanPath, err := validateLocalOrAbsolutePath(path)
	if err != nil {
		return err
	}
	parent := filepath.Dir(cleanPath)
	if parent != "." && parent != "" {
		if err := os.MkdirAll(parent, 0o750); err != nil {
			return fmt.Errorf("create append directory: %w", err)
		}
	}
	payloadCapacity, err := appendPayloadCapacity(lines)
	if err != nil {
		return err
	}
	payload := make([]byte, 0, payloadCapacity)
	for index, line := range lines {
		if containsNewline(line) {
			return fmt.Errorf("record %d contains a newline", index)
		}
		payload = append(payload, line...)
		payload = append(payload, '\n')
	}

	// #nosec G304 -- append path is validated local relative or absolute.
	file, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, mode)
	if err != nil {
		return fmt.Errorf("open append file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := file.Write(payload); err != nil {
		return fmt.Errorf("append file lines: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync append file: %w", err)
	}
	return nil
}

func appendPayloadCapacity(lines [][]byte) (int, error) {
	total := 0
	for _, line := range lines {
		lineLength := len(line)
		if lineLength >= maxInt-total {
			return 0, fmt.Errorf("append payload exceeds maximum supported size")
		}
		total += lineLength + 1
	}
	return total, nil
}

func containsNewline(line []byte) bool {
	for _, b := range line {
		if b == '\n' {
			return true
		}
	}
	return false
}

func validateLocalOrAbsolutePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is required")
	}
	cleanPath := filepath.Clean(trimmed)
	if filepath.IsLocal(cleanPath) {
		return cleanPath, nil
	}
	if strings.HasPrefix(cleanPath, string(filepath.Separator)) {
		return cleanPath, nil
	}
	if volume := filepath.VolumeName(cleanPath); volume != "" && strings.HasPrefix(cleanPath, volume+string(filepath.Separator)) {
		return cleanPath, nil
	}
	return "", fmt.Errorf("path must be local relative or absolute")
}
