package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stageNames(plan []Stage) []string {
	out := make([]string, 0, len(plan))
	for _, s := range plan {
		out = append(out, s.Name)
	}
	return out
}

func TestPlanLinearOrder(t *testing.T) {
	p, err := Load(writePipeline(t, referencePipeline))
	require.NoError(t, err)

	plan, err := Plan(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"install", "smoke", "test", "report", "docs", "deploy"}, stageNames(plan))
}

func TestPlanFileOrderTieBreak(t *testing.T) {
	p := &Pipeline{Stages: []Stage{
		{Name: "b", Commands: []string{"echo b"}},
		{Name: "a", Commands: []string{"echo a"}},
		{Name: "c", Needs: []string{"a", "b"}, Commands: []string{"echo c"}},
	}}

	plan, err := Plan(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, stageNames(plan))
}

func TestPlanUnknownNeed(t *testing.T) {
	p := &Pipeline{Stages: []Stage{
		{Name: "test", Needs: []string{"install"}, Commands: []string{"echo t"}},
	}}

	_, err := Plan(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown stage")
}

func TestPlanCycle(t *testing.T) {
	p := &Pipeline{Stages: []Stage{
		{Name: "a", Needs: []string{"b"}, Commands: []string{"echo a"}},
		{Name: "b", Needs: []string{"a"}, Commands: []string{"echo b"}},
	}}

	_, err := Plan(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestPlanDuplicateNeedIsHarmless(t *testing.T) {
	p := &Pipeline{Stages: []Stage{
		{Name: "a", Commands: []string{"echo a"}},
		{Name: "b", Needs: []string{"a", "a"}, Commands: []string{"echo b"}},
	}}

	plan, err := Plan(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stageNames(plan))
}
