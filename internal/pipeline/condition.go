package pipeline

import "fmt"

// TagState constrains the tag component of a condition.
type TagState string

const (
	TagAny     TagState = ""
	TagPresent TagState = "present"
	TagAbsent  TagState = "absent"
)

// Context is the run context a stage condition is evaluated against: the
// host-provided pull-request flag, branch and tag, plus the matrix leg the
// stage runs under.
type Context struct {
	PullRequest bool
	Branch      string
	Tag         string
	Version     string
}

// When is a stage condition triple. A nil field matches anything; a stage
// fires only when every present field matches the run context.
type When struct {
	PullRequest *bool
	Versions    []string
	Tag         TagState
}

// Matches evaluates the condition against ctx. When the condition does not
// hold it returns false and a short reason suitable for skip reporting.
func (w *When) Matches(ctx Context) (bool, string) {
	if w == nil {
		return true, ""
	}
	if w.PullRequest != nil && *w.PullRequest != ctx.PullRequest {
		if ctx.PullRequest {
			return false, "pull request run"
		}
		return false, "not a pull request run"
	}
	if len(w.Versions) > 0 && !contains(w.Versions, ctx.Version) {
		return false, fmt.Sprintf("version %s not in %v", ctx.Version, w.Versions)
	}
	switch w.Tag {
	case TagPresent:
		if ctx.Tag == "" {
			return false, "no tag present"
		}
	case TagAbsent:
		if ctx.Tag != "" {
			return false, fmt.Sprintf("tag %s present", ctx.Tag)
		}
	}
	return true, ""
}

// Fires reports whether the stage should execute under ctx.
func (s Stage) Fires(ctx Context) (bool, string) {
	return s.When.Matches(ctx)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
