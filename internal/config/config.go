// internal/config/config.go
//
// This package handles configuration and the .arcwizard directory structure.
// Every project that uses the wizard gets a .arcwizard/ folder created in its root.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/arc-wizard/internal/migration"
	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

const (
	// WizardDir is the name of the directory we create in each project
	WizardDir = ".arcwizard"

	// NetworkEnv overrides the configured network for a single run.
	NetworkEnv = "ARCWIZARD_NETWORK"

	defaultNetwork    = "private"
	defaultExportPath = "migration-params.json"
)

const defaultProjectConfigYAML = `# arc-wizard project configuration
version: 1

# Network the migration targets. ARCWIZARD_NETWORK overrides it per run.
network: private

wizard:
  # slow, medium or fast
  speed: medium
  schemes:
    - ContributionReward
    - SchemeRegistrar

migration:
  # External command that performs the on-chain migration. It receives the
  # parameter file path and the network as its last two arguments.
  # command: npx
  # args: ["daostack-migration", "--dao"]
  keep_owner: false
  use_ucontroller: false
  skip_dao_creator: false

export:
  path: migration-params.json
`

// WizardConfig holds the defaults the scheme editor starts from.
type WizardConfig struct {
	Speed   string   `yaml:"speed"`
	Schemes []string `yaml:"schemes,omitempty"`
}

// MigrationConfig describes the external migration command and switches.
// Switches are phrased so that false is the default.
type MigrationConfig struct {
	Command        string   `yaml:"command,omitempty"`
	Args           []string `yaml:"args,omitempty"`
	KeepOwner      bool     `yaml:"keep_owner"`
	UseUController bool     `yaml:"use_ucontroller"`
	SkipDaoCreator bool     `yaml:"skip_dao_creator"`
}

// ExportConfig controls where the parameter document is written.
type ExportConfig struct {
	Path string `yaml:"path"`
}

// ProjectConfig models .arcwizard/config.yaml.
type ProjectConfig struct {
	Version   int             `yaml:"version"`
	Network   string          `yaml:"network"`
	Wizard    WizardConfig    `yaml:"wizard"`
	Migration MigrationConfig `yaml:"migration"`
	Export    ExportConfig    `yaml:"export"`
}

// Config holds the runtime configuration for the wizard.
type Config struct {
	// ProjectDir is the directory where the user ran `arcwizard` from
	ProjectDir string

	// WizardProjectDir is ProjectDir/.arcwizard
	WizardProjectDir string

	Project ProjectConfig
}

// InitWizardDir creates the .arcwizard directory structure in the given
// project directory.
//
// Structure created:
// .arcwizard/
// ├── config.yaml
// ├── draft/     <- Wizard answers, one file per step
// ├── logs/      <- Journey log and migration transcripts
// └── state/     <- Per-network migration state
func InitWizardDir(projectDir string) error {
	wizardDir := filepath.Join(projectDir, WizardDir)
	dirs := []string{
		filepath.Join(wizardDir, "draft"),
		filepath.Join(wizardDir, "logs"),
		filepath.Join(wizardDir, "state"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return ensureProjectConfig(filepath.Join(wizardDir, "config.yaml"))
}

// NewConfig creates a new Config instance populated with project settings.
func NewConfig(projectDir string) (*Config, error) {
	cfg := &Config{
		ProjectDir:       projectDir,
		WizardProjectDir: filepath.Join(projectDir, WizardDir),
		Project:          defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	if network := strings.TrimSpace(os.Getenv(NetworkEnv)); network != "" {
		cfg.Project.Network = network
	}
	return cfg, nil
}

// DraftDir returns the path to the wizard draft directory
func (c *Config) DraftDir() string {
	return filepath.Join(c.WizardProjectDir, "draft")
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.WizardProjectDir, "logs")
}

// StateDir returns the path to the migration state directory
func (c *Config) StateDir() string {
	return filepath.Join(c.WizardProjectDir, "state")
}

// ProjectConfigPath returns the on-disk location for the project config file.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.WizardProjectDir, "config.yaml")
}

// ExportPath returns the absolute path the parameter document is exported to.
func (c *Config) ExportPath() string {
	return c.Project.Export.Path
}

// Network returns the target network name.
func (c *Config) Network() string {
	return c.Project.Network
}

// DefaultSpeed returns the configured starting decision speed.
func (c *Config) DefaultSpeed() reconcile.Speed {
	speed, err := reconcile.ParseSpeed(c.Project.Wizard.Speed)
	if err != nil {
		return reconcile.SpeedMedium
	}
	return speed
}

// DefaultSchemes returns the configured starting scheme set.
func (c *Config) DefaultSchemes() []scheme.Type {
	var out []scheme.Type
	for _, name := range c.Project.Wizard.Schemes {
		t, err := scheme.ParseType(name)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return reconcile.DefaultSchemeTypes()
	}
	return out
}

// MigrationOptions maps the configured switches onto the document options.
func (c *Config) MigrationOptions() migration.Options {
	m := c.Project.Migration
	return migration.Options{
		UnregisterOwner: !m.KeepOwner,
		UseUController:  m.UseUController,
		UseDaoCreator:   !m.SkipDaoCreator,
	}
}

// SetDefaultSpeed updates the starting speed and persists the value back to
// .arcwizard/config.yaml.
func (c *Config) SetDefaultSpeed(speed reconcile.Speed) error {
	text, err := speed.MarshalText()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.Wizard.Speed = string(text)
	return c.saveProjectConfig()
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := parsed.applyDefaults(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Network: defaultNetwork,
		Wizard: WizardConfig{
			Speed:   "medium",
			Schemes: []string{scheme.ContributionReward.String(), scheme.SchemeRegistrar.String()},
		},
		Export: ExportConfig{Path: defaultExportPath},
	}
}

// applyDefaults fills every field the file left empty.
func (pc *ProjectConfig) applyDefaults() error {
	return mergo.Merge(pc, defaultProjectConfig())
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Network = strings.ToLower(strings.TrimSpace(pc.Network))
	pc.Wizard.Speed = strings.ToLower(strings.TrimSpace(pc.Wizard.Speed))
	for i := range pc.Wizard.Schemes {
		pc.Wizard.Schemes[i] = strings.TrimSpace(pc.Wizard.Schemes[i])
	}
	pc.Migration.Command = strings.TrimSpace(pc.Migration.Command)
	pc.Export.Path = resolvePath(base, pc.Export.Path)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.Network == "" {
		return fmt.Errorf("network is required")
	}
	if _, err := reconcile.ParseSpeed(pc.Wizard.Speed); err != nil {
		return fmt.Errorf("wizard.speed: %w", err)
	}
	for i, name := range pc.Wizard.Schemes {
		if _, err := scheme.ParseType(name); err != nil {
			return fmt.Errorf("wizard.schemes[%d]: %w", i, err)
		}
	}
	if pc.Migration.Command == "" && len(pc.Migration.Args) > 0 {
		return fmt.Errorf("migration.args given without migration.command")
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}

func (c *Config) saveProjectConfig() error {
	if c == nil {
		return fmt.Errorf("config: nil receiver")
	}
	if err := c.Project.applyDefaults(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := os.MkdirAll(c.WizardProjectDir, 0o755); err != nil {
		return fmt.Errorf("config: ensure wizard dir: %w", err)
	}
	stored := c.Project
	if rel, err := filepath.Rel(c.ProjectDir, stored.Export.Path); err == nil && !strings.HasPrefix(rel, "..") {
		stored.Export.Path = rel
	}
	data, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("config: encode config: %w", err)
	}
	if err := os.WriteFile(c.ProjectConfigPath(), data, 0644); err != nil {
		return fmt.Errorf("config: write project config: %w", err)
	}
	return nil
}
