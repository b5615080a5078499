// Package runenv detects the run context from host-provided environment
// variables. CI hosts export the pull-request state, branch and tag of the
// checkout; stagehand-specific variables take precedence over generic CI_*
// ones so users can override the detection.
package runenv

import (
	"os"
	"strings"

	"github.com/stagehand-dev/stagehand/internal/pipeline"
)

// Environment variables consulted, in precedence order.
const (
	EnvPullRequest   = "STAGEHAND_PULL_REQUEST"
	EnvCIPullRequest = "CI_PULL_REQUEST"
	EnvTag           = "STAGEHAND_TAG"
	EnvCITag         = "CI_TAG"
	EnvBranch        = "STAGEHAND_BRANCH"
	EnvCIBranch      = "CI_BRANCH"
)

// Detect builds the run context from the environment. The matrix version is
// filled in per leg by the caller.
func Detect() pipeline.Context {
	return pipeline.Context{
		PullRequest: IsPullRequest(firstEnv(EnvPullRequest, EnvCIPullRequest)),
		Tag:         firstEnv(EnvTag, EnvCITag),
		Branch:      firstEnv(EnvBranch, EnvCIBranch),
	}
}

// IsPullRequest interprets a host pull-request variable. Hosts either set a
// boolean, a PR number, or the literal "false" for non-PR runs.
func IsPullRequest(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "false", "0", "no":
		return false
	}
	return true
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
