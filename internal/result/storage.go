package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	MetaFile    = "run.json"
	SummaryFile = "summary.json"
	ScanFile    = "scan.json"
)

// CreateRunDir makes <base>/runs/<stamp>-<id> and points <base>/latest at
// it. The returned id is the full run UUID.
func CreateRunDir(baseDir string) (dir, id string, err error) {
	id = uuid.NewString()
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir, err := filepath.Abs(filepath.Join(baseDir, "runs", stamp+"-"+id[:8]))
	if err != nil {
		return "", "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, id, nil
}

func WriteMeta(runDir string, meta *RunMeta) error {
	return writeJSON(filepath.Join(runDir, MetaFile), meta)
}

func ReadMeta(path string) (*RunMeta, error) {
	var meta RunMeta
	if err := readJSON(path, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func WriteSummary(runDir string, s *Summary) error {
	return writeJSON(filepath.Join(runDir, SummaryFile), s)
}

func ReadSummary(path string) (*Summary, error) {
	var s Summary
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func WriteScan(runDir string, s *ScanResult) error {
	return writeJSON(filepath.Join(runDir, ScanFile), s)
}

func ReadScan(path string) (*ScanResult, error) {
	var s ScanResult
	if err := readJSON(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return nil
}
