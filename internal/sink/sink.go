// Package sink persists one stage's drained latency samples as a JSON
// array of nanosecond durations, written atomically via a create-temp,
// fsync, then rename discipline so a crash or a concurrent reader never
// observes a truncated file.
package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"extprocbench/internal/apperr"
)

// CheckDir verifies dir exists and is a directory, before any stage runs,
// so a typo in --result-dir fails fast instead of after the first sweep.
func CheckDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrSinkFailure, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", apperr.ErrSinkFailure, dir)
	}
	return nil
}

// Write marshals samples (nanosecond latencies, successful streams only, in
// completion order) to dir/stage-%04d-rate-%d.json, via a temp file in the
// same directory fsynced and renamed into place.
func Write(dir string, stageIndex int, rateSPS float64, samples []int64) error {
	name := fmt.Sprintf("stage-%04d-rate-%d.json", stageIndex, int64(rateSPS))
	finalPath := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrSinkFailure, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if err := writeAndSync(tmp, samples); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", apperr.ErrSinkFailure, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrSinkFailure, err)
	}
	return nil
}

func writeAndSync(f *os.File, samples []int64) error {
	enc := json.NewEncoder(f)
	if err := enc.Encode(samples); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return f.Close()
}
