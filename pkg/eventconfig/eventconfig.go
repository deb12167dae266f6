// Package eventconfig parses the repository's event.yml, the read-only
// event-wide configuration named in spec.md §3 "Event Config".
package eventconfig

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/flagforge/ctfmanager/pkg/ctferrors"
)

// Category describes one challenge category.
type Category struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Color       string `yaml:"color"`
}

// Difficulty describes one challenge difficulty tier.
type Difficulty struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// Config is the parsed event.yml.
type Config struct {
	Name               string                `yaml:"name"`
	FrontPageMD        string                `yaml:"front_page_md"`
	RulesMD            string                `yaml:"rules_md"`
	StartTime          int64                 `yaml:"start_time"`
	EndTime            int64                 `yaml:"end_time"`
	RegistrationStart  *int64                `yaml:"registration_start,omitempty"`
	RegistrationEnd    *int64                `yaml:"registration_end,omitempty"`
	TeamsEnabled       bool                  `yaml:"teams_enabled"`
	MaxTeamSize        int                   `yaml:"max_team_size,omitempty"`
	FreezeTime         *int64                `yaml:"freeze_time,omitempty"`
	Categories         map[string]Category   `yaml:"categories,omitempty"`
	Difficulties       map[string]Difficulty `yaml:"difficulties,omitempty"`
	PointsFn           string                `yaml:"points_fn,omitempty"`
}

// Load reads and parses repo/event.yml.
func Load(repo string) (*Config, error) {
	raw, err := os.ReadFile(filepath.Join(repo, "event.yml"))
	if err != nil {
		return nil, ctferrors.NotFoundf("event.yml not found in repository")
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, ctferrors.FailedPreconditionf("event.yml does not match the expected schema: %v", err)
	}
	return &cfg, nil
}
