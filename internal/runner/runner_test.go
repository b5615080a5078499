package runner

import (
	"bytes"
	"context"
	"crypto/aes"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stagehand-dev/stagehand/internal/executor"
	"github.com/stagehand-dev/stagehand/internal/pipeline"
	"github.com/stagehand-dev/stagehand/internal/secrets"
)

// fakeExec implements executor.Runner without touching a shell.
type fakeExec struct {
	mu    sync.Mutex
	cmds  []string
	envs  [][]string
	fail  map[string]int           // command -> exit code
	block map[string]time.Duration // command -> sleep (ctx aware)
}

func (f *fakeExec) Execute(ctx context.Context, command, _ string, env []string, stdout, _ io.Writer) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, command)
	f.envs = append(f.envs, env)
	delay := f.block[command]
	code, failing := f.fail[command]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	if failing {
		return &executor.ExitError{Code: code}
	}
	_, _ = stdout.Write([]byte("out\n"))
	return nil
}

func (f *fakeExec) ran(command string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cmds {
		if c == command {
			return true
		}
	}
	return false
}

func linearPlan(t *testing.T) []pipeline.Stage {
	t.Helper()
	no := false
	p := &pipeline.Pipeline{Stages: []pipeline.Stage{
		{Name: "install", Commands: []string{"pip install"}},
		{Name: "test", Needs: []string{"install"}, Commands: []string{"run tests"}, AllowExitCodes: []int{1}},
		{Name: "docs", Needs: []string{"test"}, Commands: []string{"build docs"},
			When: &pipeline.When{PullRequest: &no, Tag: pipeline.TagAbsent}},
		{Name: "deploy", Needs: []string{"test"}, Commands: []string{"upload dist"},
			When: &pipeline.When{PullRequest: &no, Tag: pipeline.TagPresent}},
	}}
	plan, err := pipeline.Plan(p)
	require.NoError(t, err)
	return plan
}

func TestRunLegAllStagesPass(t *testing.T) {
	fake := &fakeExec{}
	var out bytes.Buffer
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{}, pipeline.Context{Version: "3.5"},
		Options{Exec: fake, Stdout: &out})

	assert.Equal(t, LegPassed, res.Status)
	require.Len(t, res.Stages, 4)
	assert.Equal(t, StageOK, res.Stages[0].Status)
	assert.Equal(t, StageOK, res.Stages[1].Status)
	// docs fires (no PR, no tag); deploy needs a tag
	assert.Equal(t, StageOK, res.Stages[2].Status)
	assert.Equal(t, StageSkipped, res.Stages[3].Status)
	assert.True(t, fake.ran("build docs"))
	assert.False(t, fake.ran("upload dist"))
	assert.Contains(t, out.String(), "== stage install")
}

func TestRunLegPullRequestSkipsGuardedStages(t *testing.T) {
	fake := &fakeExec{}
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{},
		pipeline.Context{Version: "3.5", PullRequest: true}, Options{Exec: fake})

	assert.Equal(t, LegPassed, res.Status)
	assert.Equal(t, StageSkipped, res.Stages[2].Status)
	assert.Equal(t, "pull request run", res.Stages[2].SkipReason)
	assert.Equal(t, StageSkipped, res.Stages[3].Status)
	assert.False(t, fake.ran("build docs"))
	assert.False(t, fake.ran("upload dist"))
}

func TestRunLegTagDeploys(t *testing.T) {
	fake := &fakeExec{}
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{},
		pipeline.Context{Version: "3.5", Tag: "v1.0.0"}, Options{Exec: fake})

	assert.Equal(t, LegPassed, res.Status)
	assert.Equal(t, StageSkipped, res.Stages[2].Status) // docs skipped on tags
	assert.Equal(t, StageOK, res.Stages[3].Status)
	assert.True(t, fake.ran("upload dist"))
}

func TestRunLegRemapsAllowedExitCode(t *testing.T) {
	fake := &fakeExec{fail: map[string]int{"run tests": 1}}
	var out bytes.Buffer
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{},
		pipeline.Context{Version: "3.5"}, Options{Exec: fake, Stdout: &out})

	assert.Equal(t, LegPassed, res.Status)
	test := res.Stages[1]
	assert.Equal(t, StageOK, test.Status)
	assert.True(t, test.Remapped)
	assert.Equal(t, 1, test.ExitCode)
	assert.Contains(t, out.String(), "remapped to success")
	// the leg continued past the remapped stage
	assert.True(t, fake.ran("build docs"))
}

func TestRunLegDisallowedExitCodeAbortsLeg(t *testing.T) {
	fake := &fakeExec{fail: map[string]int{"run tests": 2}}
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{},
		pipeline.Context{Version: "3.5"}, Options{Exec: fake})

	assert.Equal(t, LegFailed, res.Status)
	require.Error(t, res.Err)
	require.Len(t, res.Stages, 2) // later stages never ran
	assert.Equal(t, StageFailed, res.Stages[1].Status)
	assert.Equal(t, 2, res.Stages[1].ExitCode)
	assert.False(t, fake.ran("build docs"))
}

func TestRunLegInstallFailureIsFatal(t *testing.T) {
	fake := &fakeExec{fail: map[string]int{"pip install": 1}}
	res := RunLeg(context.Background(), linearPlan(t), pipeline.Env{},
		pipeline.Context{Version: "3.5"}, Options{Exec: fake})

	// exit 1 is only remapped where a stage opts in
	assert.Equal(t, LegFailed, res.Status)
	assert.Equal(t, StageFailed, res.Stages[0].Status)
	assert.False(t, fake.ran("run tests"))
}

func TestRunLegBlocksDestructiveCommands(t *testing.T) {
	fake := &fakeExec{}
	plan := []pipeline.Stage{{Name: "clean", Commands: []string{"dd if=/dev/zero of=/dev/sda"}}}
	var out bytes.Buffer
	res := RunLeg(context.Background(), plan, pipeline.Env{}, pipeline.Context{}, Options{Exec: fake, Stdout: &out})

	assert.Equal(t, LegFailed, res.Status)
	assert.False(t, fake.ran("dd if=/dev/zero of=/dev/sda"))
	assert.Contains(t, out.String(), "refusing to run")

	res = RunLeg(context.Background(), plan, pipeline.Env{}, pipeline.Context{}, Options{Exec: fake, Force: true})
	assert.Equal(t, LegPassed, res.Status)
	assert.True(t, fake.ran("dd if=/dev/zero of=/dev/sda"))
}

func TestRunLegCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := &fakeExec{}
	res := RunLeg(ctx, linearPlan(t), pipeline.Env{}, pipeline.Context{Version: "3.5"}, Options{Exec: fake})

	assert.Equal(t, LegCanceled, res.Status)
	for _, sr := range res.Stages {
		assert.Equal(t, StageCanceled, sr.Status)
	}
	assert.Empty(t, fake.cmds)
}

func TestStageEnvRevealsOnlyReferencedSecrets(t *testing.T) {
	key := strings.Repeat("ab", 32)
	iv := strings.Repeat("cd", aes.BlockSize)
	t.Setenv(secrets.EnvKey, key)
	t.Setenv(secrets.EnvIV, iv)

	kb, _ := hex.DecodeString(key)
	ib, _ := hex.DecodeString(iv)
	blob, err := secrets.Encrypt([]byte("s3cret"), kb, ib)
	require.NoError(t, err)

	env := pipeline.Env{
		Global: []string{"GH_REF=github.com/acme/proj"},
		Secure: map[string]string{
			"PYPI_PASSWORD": base64.StdEncoding.EncodeToString(blob),
			"UNUSED_TOKEN":  "garbage-that-would-fail-to-decode",
		},
	}
	stage := pipeline.Stage{Name: "deploy", Commands: []string{"twine upload -p $PYPI_PASSWORD dist/*"}}

	got, err := stageEnv(stage, env, secrets.NewVault(env.Secure))
	require.NoError(t, err)
	assert.Contains(t, got, "GH_REF=github.com/acme/proj")
	assert.Contains(t, got, "PYPI_PASSWORD=s3cret")
	for _, e := range got {
		assert.False(t, strings.HasPrefix(e, "UNUSED_TOKEN="))
	}
}

func TestStageEnvMissingHandleFailsOnlyReferencingStage(t *testing.T) {
	t.Setenv(secrets.EnvKey, "")
	t.Setenv(secrets.EnvIV, "")

	env := pipeline.Env{Secure: map[string]string{"TOKEN": "whatever"}}
	vault := secrets.NewVault(env.Secure)

	plain := pipeline.Stage{Name: "test", Commands: []string{"run tests"}}
	_, err := stageEnv(plain, env, vault)
	assert.NoError(t, err)

	needy := pipeline.Stage{Name: "deploy", Commands: []string{"upload --token $TOKEN"}}
	_, err = stageEnv(needy, env, vault)
	assert.Error(t, err)
}
