package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kingrea/arc-wizard/internal/reconcile"
	"github.com/kingrea/arc-wizard/internal/scheme"
)

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	projectDir := t.TempDir()
	wizardDir := filepath.Join(projectDir, WizardDir)
	if err := os.MkdirAll(wizardDir, 0755); err != nil {
		t.Fatal(err)
	}
	return &Config{ProjectDir: projectDir, WizardProjectDir: wizardDir, Project: defaultProjectConfig()}
}

func TestLoadProjectConfigDefaultsWhenMissing(t *testing.T) {
	c := newTestConfig(t)
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 1 {
		t.Fatalf("expected default version == 1, got %d", c.Project.Version)
	}
	if c.DefaultSpeed() != reconcile.SpeedMedium {
		t.Fatalf("expected medium speed, got %s", c.DefaultSpeed())
	}
	if got := c.DefaultSchemes(); len(got) != 2 || got[0] != scheme.ContributionReward || got[1] != scheme.SchemeRegistrar {
		t.Fatalf("unexpected default schemes %v", got)
	}
	if c.ExportPath() != filepath.Join(c.ProjectDir, defaultExportPath) {
		t.Fatalf("export path should resolve against the project, got %s", c.ExportPath())
	}
	opts := c.MigrationOptions()
	if !opts.UnregisterOwner || !opts.UseDaoCreator || opts.UseUController {
		t.Fatalf("unexpected default options %+v", opts)
	}
}

func TestLoadProjectConfigParsesYaml(t *testing.T) {
	c := newTestConfig(t)
	configYAML := strings.TrimSpace(`
version: 1
network: Kovan
wizard:
  speed: fast
  schemes:
    - GenericScheme
migration:
  command: node
  args: ["migrate.js"]
  keep_owner: true
export:
  path: out/params.json
`)
	if err := os.WriteFile(c.ProjectConfigPath(), []byte(configYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Network() != "kovan" {
		t.Fatalf("network should be normalized, got %q", c.Network())
	}
	if c.DefaultSpeed() != reconcile.SpeedFast {
		t.Fatalf("expected fast, got %s", c.DefaultSpeed())
	}
	if got := c.DefaultSchemes(); len(got) != 1 || got[0] != scheme.GenericScheme {
		t.Fatalf("unexpected schemes %v", got)
	}
	if c.MigrationOptions().UnregisterOwner {
		t.Fatalf("keep_owner should disable owner unregistration")
	}
	if !strings.HasPrefix(c.ExportPath(), c.ProjectDir) {
		t.Fatalf("expected export path to be resolved, got %s", c.ExportPath())
	}
}

func TestLoadProjectConfigFillsOmittedSections(t *testing.T) {
	c := newTestConfig(t)
	if err := os.WriteFile(c.ProjectConfigPath(), []byte("version: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := c.loadProjectConfig(); err != nil {
		t.Fatalf("loadProjectConfig returned error: %v", err)
	}
	if c.Project.Version != 2 {
		t.Fatalf("explicit version overwritten: %d", c.Project.Version)
	}
	if c.Network() != defaultNetwork || c.Project.Wizard.Speed != "medium" {
		t.Fatalf("defaults not applied: %+v", c.Project)
	}
}

func TestLoadProjectConfigValidation(t *testing.T) {
	cases := map[string]string{
		"wizard.speed":   "wizard:\n  speed: warp\n",
		"wizard.schemes": "wizard:\n  schemes: [Nope]\n",
		"migration.args": "migration:\n  args: [x]\n",
		"parse":          "version: [\n",
	}
	for want, body := range cases {
		c := newTestConfig(t)
		if err := os.WriteFile(c.ProjectConfigPath(), []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		err := c.loadProjectConfig()
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q error, got %v", want, err)
		}
	}
}

func TestNetworkEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(NetworkEnv, "Mainnet ")
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Network() != "Mainnet" {
		t.Fatalf("expected env override, got %q", cfg.Network())
	}
}

func TestInitWizardDirAndSetDefaultSpeed(t *testing.T) {
	dir := t.TempDir()
	if err := InitWizardDir(dir); err != nil {
		t.Fatalf("InitWizardDir: %v", err)
	}
	for _, sub := range []string{"draft", "logs", "state", "config.yaml"} {
		if _, err := os.Stat(filepath.Join(dir, WizardDir, sub)); err != nil {
			t.Fatalf("missing %s: %v", sub, err)
		}
	}
	cfg, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if err := cfg.SetDefaultSpeed(reconcile.SpeedSlow); err != nil {
		t.Fatalf("SetDefaultSpeed: %v", err)
	}
	reloaded, err := NewConfig(dir)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.DefaultSpeed() != reconcile.SpeedSlow {
		t.Fatalf("speed not persisted, got %s", reloaded.DefaultSpeed())
	}
	if reloaded.ExportPath() != cfg.ExportPath() {
		t.Fatalf("export path changed across save: %s vs %s", reloaded.ExportPath(), cfg.ExportPath())
	}
}
