package runenv

import (
	"testing"
)

func TestIsPullRequest(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"false": false,
		"FALSE": false,
		"0":     false,
		"no":    false,
		"true":  true,
		"1":     true,
		"42":    true, // PR number
	}
	for in, want := range cases {
		if got := IsPullRequest(in); got != want {
			t.Fatalf("IsPullRequest(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDetectPrecedence(t *testing.T) {
	t.Setenv(EnvCITag, "v1.0.0")
	t.Setenv(EnvTag, "v2.0.0")
	t.Setenv(EnvCIBranch, "main")
	t.Setenv(EnvPullRequest, "")
	t.Setenv(EnvCIPullRequest, "17")

	ctx := Detect()
	if ctx.Tag != "v2.0.0" {
		t.Fatalf("expected stagehand tag to win, got %q", ctx.Tag)
	}
	if ctx.Branch != "main" {
		t.Fatalf("expected CI branch fallback, got %q", ctx.Branch)
	}
	if !ctx.PullRequest {
		t.Fatalf("expected PR number to mark a pull request run")
	}
}

func TestDetectEmpty(t *testing.T) {
	for _, k := range []string{EnvPullRequest, EnvCIPullRequest, EnvTag, EnvCITag, EnvBranch, EnvCIBranch} {
		t.Setenv(k, "")
	}
	ctx := Detect()
	if ctx.PullRequest || ctx.Tag != "" || ctx.Branch != "" {
		t.Fatalf("expected empty context, got %+v", ctx)
	}
}
