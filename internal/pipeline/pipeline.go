// Package pipeline defines the pipeline model: the staged commands a run
// executes, the version matrix, and the conditions that gate individual
// stages.
package pipeline

// Pipeline is a fully mapped and validated pipeline definition.
type Pipeline struct {
	Name   string
	Matrix Matrix
	Env    Env
	Stages []Stage
}

// Matrix describes the version legs a pipeline runs under. An empty
// Versions list means a single implicit "default" leg.
type Matrix struct {
	Versions   []string
	FastFinish bool
}

// DefaultVersion is the implicit leg used when no matrix is configured.
const DefaultVersion = "default"

// Legs returns the version legs to run, never empty.
func (m Matrix) Legs() []string {
	if len(m.Versions) == 0 {
		return []string{DefaultVersion}
	}
	return m.Versions
}

// Env holds the environment exported to stage commands. Global entries are
// plain KEY=VALUE pairs; Secure maps variable names to encrypted blobs that
// are only revealed when a firing stage references them.
type Env struct {
	Global []string
	Secure map[string]string
}

// Stage is one named step of the pipeline.
type Stage struct {
	Name     string
	Needs    []string
	When     *When
	Commands []string

	// AllowExitCodes lists command exit codes that are remapped to
	// success for this stage. The original code is still recorded.
	AllowExitCodes []int
}

// Allows reports whether the stage remaps the given exit code to success.
func (s Stage) Allows(code int) bool {
	for _, c := range s.AllowExitCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Stage lookup by name. Returns nil when absent.
func (p *Pipeline) Stage(name string) *Stage {
	for i := range p.Stages {
		if p.Stages[i].Name == name {
			return &p.Stages[i]
		}
	}
	return nil
}
