package adapter

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	m "xcheck.dev/pkg/xcheck/internal/model"
)

// ReportStore persists instrumentation reports so separate invocations can
// inspect earlier runs.
type ReportStore interface {
	Save(path string, report m.Report) error
	Load(path string) (m.Report, error)
}

// LocalReportStore stores reports as YAML files on the local filesystem.
type LocalReportStore struct{}

// NewLocalReportStore constructs a LocalReportStore.
func NewLocalReportStore() *LocalReportStore {
	return &LocalReportStore{}
}

// Save writes the report to path.
func (s *LocalReportStore) Save(path string, report m.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("unable to encode report: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("unable to write report %s: %w", path, err)
	}

	return nil
}

// Load reads a report previously written by Save.
func (s *LocalReportStore) Load(path string) (m.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return m.Report{}, fmt.Errorf("unable to read report %s: %w", path, err)
	}

	var report m.Report
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.Report{}, fmt.Errorf("unable to decode report %s: %w", path, err)
	}

	return report, nil
}
