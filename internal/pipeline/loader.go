package pipeline

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the pipeline definition looked up when no path is given.
const DefaultFile = ".stagehand.yml"

type yamlPipeline struct {
	Name   string      `yaml:"name"`
	Matrix yamlMatrix  `yaml:"matrix"`
	Env    yamlEnv     `yaml:"env"`
	Stages []yamlStage `yaml:"stages"`
}

type yamlMatrix struct {
	Versions   []string `yaml:"versions"`
	FastFinish bool     `yaml:"fast_finish"`
}

type yamlEnv struct {
	Global []string          `yaml:"global"`
	Secure map[string]string `yaml:"secure"`
}

type yamlStage struct {
	Name           string    `yaml:"name"`
	Needs          []string  `yaml:"needs"`
	When           *yamlWhen `yaml:"when"`
	Commands       []string  `yaml:"commands"`
	AllowExitCodes []int     `yaml:"allow_exit_codes"`
}

type yamlWhen struct {
	PullRequest *bool    `yaml:"pull_request"`
	Versions    []string `yaml:"versions"`
	Tag         string   `yaml:"tag"`
}

// Load reads and maps the pipeline definition at path.
func Load(path string) (*Pipeline, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read pipeline file")
	}
	var dto yamlPipeline
	if err := yaml.Unmarshal(b, &dto); err != nil {
		return nil, errors.Wrap(err, "parse pipeline file")
	}
	return mapPipeline(dto)
}

func mapPipeline(dto yamlPipeline) (*Pipeline, error) {
	p := &Pipeline{
		Name: strings.TrimSpace(dto.Name),
		Matrix: Matrix{
			Versions:   dto.Matrix.Versions,
			FastFinish: dto.Matrix.FastFinish,
		},
		Env: Env{
			Global: dto.Env.Global,
			Secure: dto.Env.Secure,
		},
	}
	if p.Name == "" {
		p.Name = "pipeline"
	}

	for _, e := range dto.Env.Global {
		if !strings.Contains(e, "=") {
			return nil, errors.Errorf("global env entry %q is not KEY=VALUE", e)
		}
	}

	if len(dto.Stages) == 0 {
		return nil, errors.New("pipeline has no stages")
	}

	seen := map[string]bool{}
	for _, ds := range dto.Stages {
		s, err := mapStage(ds)
		if err != nil {
			return nil, err
		}
		if seen[s.Name] {
			return nil, errors.Errorf("duplicate stage name %q", s.Name)
		}
		seen[s.Name] = true
		p.Stages = append(p.Stages, s)
	}
	return p, nil
}

func mapStage(ds yamlStage) (Stage, error) {
	name := strings.TrimSpace(ds.Name)
	if name == "" {
		return Stage{}, errors.New("stage without a name")
	}
	s := Stage{
		Name:           name,
		Needs:          ds.Needs,
		AllowExitCodes: ds.AllowExitCodes,
	}
	for _, c := range ds.Commands {
		if strings.TrimSpace(c) == "" {
			continue
		}
		s.Commands = append(s.Commands, c)
	}
	if len(s.Commands) == 0 {
		return Stage{}, errors.Errorf("stage %q has no commands", name)
	}
	for _, code := range s.AllowExitCodes {
		if code <= 0 || code > 255 {
			return Stage{}, errors.Errorf("stage %q: allowed exit code %d out of range", name, code)
		}
	}
	if ds.When != nil {
		w, err := mapWhen(name, ds.When)
		if err != nil {
			return Stage{}, err
		}
		s.When = w
	}
	return s, nil
}

func mapWhen(stage string, dw *yamlWhen) (*When, error) {
	w := &When{
		PullRequest: dw.PullRequest,
		Versions:    dw.Versions,
	}
	switch TagState(dw.Tag) {
	case TagAny, TagPresent, TagAbsent:
		w.Tag = TagState(dw.Tag)
	default:
		return nil, errors.Errorf("stage %q: tag condition must be %q or %q, got %q",
			stage, TagPresent, TagAbsent, dw.Tag)
	}
	return w, nil
}
