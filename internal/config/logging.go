package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const logFilePattern = "botcraft-*.log"

// SetupLogFile opens a new timestamped log file in dir and prunes all but the
// keep most recent ones. The caller closes the file.
func SetupLogFile(dir string, keep int) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, "botcraft-"+time.Now().UTC().Format("20060102T150405")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	if err := pruneLogs(dir, keep); err != nil {
		// logging still works, the directory just grows
		fmt.Fprintf(os.Stderr, "warning: prune logs: %v\n", err)
	}
	return f, nil
}

func pruneLogs(dir string, keep int) error {
	files, err := filepath.Glob(filepath.Join(dir, logFilePattern))
	if err != nil {
		return err
	}
	if keep < 1 || len(files) <= keep {
		return nil
	}

	// names sort chronologically
	sort.Strings(files)
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove %s: %w", f, err)
		}
	}
	return nil
}
