package model

// InstrumentedKind labels one rewriting action recorded in a report.
type InstrumentedKind string

// Report entry kinds.
const (
	KindFunction    InstrumentedKind = "function"
	KindMethod      InstrumentedKind = "method"
	KindStruct      InstrumentedKind = "struct"
	KindUnion       InstrumentedKind = "union"
	KindForeignType InstrumentedKind = "foreign_type"
	KindField       InstrumentedKind = "field"
	KindLocal       InstrumentedKind = "local"
	KindCExport     InstrumentedKind = "c_export"
)

// ItemReport records one instrumented item within a file.
type ItemReport struct {
	Name    string           `yaml:"name"`
	Kind    InstrumentedKind `yaml:"kind"`
	Line    int              `yaml:"line"`
	Checks  int              `yaml:"checks"`
	Skipped bool             `yaml:"skipped,omitempty"`
}

// FileReport aggregates the instrumentation results for one source file.
type FileReport struct {
	Path  Path         `yaml:"path"`
	Items []ItemReport `yaml:"items,omitempty"`
	Diff  string       `yaml:"-"`
}

// Report is the result of one full instrumentation pass.
type Report struct {
	Files []FileReport `yaml:"files"`
}

// TotalChecks sums the check statements injected across all files.
func (r Report) TotalChecks() int {
	total := 0

	for _, f := range r.Files {
		for _, item := range f.Items {
			total += item.Checks
		}
	}

	return total
}

// TotalItems counts the instrumented items across all files.
func (r Report) TotalItems() int {
	total := 0
	for _, f := range r.Files {
		total += len(f.Items)
	}

	return total
}
