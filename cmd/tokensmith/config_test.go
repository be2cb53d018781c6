package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/knadh/koanf/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yacobolo/tokensmith"
	"github.com/yacobolo/tokensmith/internal/tokens"
)

// resetKoanf creates a fresh koanf instance for each test.
func resetKoanf() {
	k = koanf.New(".")
}

func TestConfigFileLoading(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".tokensmith.yaml")
	configContent := `
verbose: true
collect:
  pages:
    - "home=https://example.com"
  loads-per-second: 0.5
run:
  parallelism: 4
  page-timeout: 45s
  broad-capture: true
  styling:
    name: tailwind
    confidence: likely
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	assert.True(t, k.Bool("verbose"))
	assert.Equal(t, []string{"home=https://example.com"}, k.Strings("collect.pages"))

	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, 45*time.Second, cfg.PageTimeout)
	assert.True(t, cfg.Validator.BroadCapture)
	assert.Equal(t, tokens.StylingSystem{Name: "tailwind", Confidence: "likely"}, cfg.Styling)

	bc := buildBrowserConfig(nil)
	assert.InDelta(t, 0.5, bc.LoadsPerSecond, 0.001)
	assert.True(t, bc.BroadCapture)
}

func TestConfigFileNotFound_UsesDefaults(t *testing.T) {
	resetKoanf()

	require.NoError(t, loadConfigFromPath("/nonexistent/.tokensmith.yaml"))

	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.PageTimeout)
	assert.InDelta(t, 24, cfg.Validator.MinBBox, 0.001)
	assert.Equal(t, 6, cfg.Validator.MaxPerGroup)
	assert.False(t, cfg.States.AllowUnsafe)
	assert.Equal(t, 3, cfg.States.StabilizeAttempts)
	assert.Equal(t, 2, cfg.MinRoleEvidence)
	assert.Equal(t, 8, cfg.MaxVarDepth)
	assert.Equal(t, "unknown", cfg.Styling.Confidence)
	assert.Nil(t, cfg.Policies, "pipeline applies the built-in policies")

	bc := buildBrowserConfig(nil)
	assert.InDelta(t, 2, bc.LoadsPerSecond, 0.001)
	assert.Equal(t, 10*time.Minute, bc.StylesheetTTL)
}

func TestEnvVarOverridesConfigFile(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".tokensmith.yaml")
	configContent := `
run:
  parallelism: 1
  allow-unsafe-states: false
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))

	t.Setenv("TOKENSMITH_RUN_PARALLELISM", "3")
	t.Setenv("TOKENSMITH_RUN_ALLOW__UNSAFE__STATES", "true")
	t.Setenv("TOKENSMITH_RUN_PAGE__TIMEOUT", "5s")

	require.NoError(t, loadConfigFromPath(configPath))

	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parallelism)
	assert.True(t, cfg.States.AllowUnsafe)
	assert.Equal(t, 5*time.Second, cfg.PageTimeout)
}

func TestBuildRunConfig_PolicyOverrides(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".tokensmith.yaml")
	configContent := `
run:
  policies:
    color:
      tolerance: 4.5
    spacing:
      max-scale: 6
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)

	defaults := tokens.DefaultPolicies()
	color := cfg.Policies[tokens.CategoryColor]
	assert.InDelta(t, 4.5, color.Tolerance, 0.001)
	assert.Equal(t, defaults[tokens.CategoryColor].MaxScale, color.MaxScale, "unset fields keep the built-in value")
	assert.Equal(t, 6, cfg.Policies[tokens.CategorySpacing].MaxScale)
	assert.Equal(t, defaults[tokens.CategoryRadius], cfg.Policies[tokens.CategoryRadius])
}

func TestBuildRunConfig_NoiseOverrides(t *testing.T) {
	resetKoanf()

	dir := t.TempDir()
	configPath := filepath.Join(dir, ".tokensmith.yaml")
	configContent := `
run:
  noise:
    color: 2.5
    duration: 5
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0o644))
	require.NoError(t, loadConfigFromPath(configPath))

	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)

	defaults := tokens.DefaultNoise()
	assert.InDelta(t, 2.5, cfg.States.Noise.Color, 0.001)
	assert.InDelta(t, 5, cfg.States.Noise.Duration, 0.001)
	assert.InDelta(t, defaults.Length, cfg.States.Noise.Length, 0.001, "unset fields keep the default")
	assert.InDelta(t, defaults.Opacity, cfg.States.Noise.Opacity, 0.001)

	resetKoanf()
	cfg, err = buildRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, tokens.NoiseThresholds{}, cfg.States.Noise, "the engine applies its defaults")
}

func TestLoadSelection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "selected.txt")
	require.NoError(t, os.WriteFile(path, []byte("# hero section\n#hero\n\n.btn-primary\nnav > a\n"), 0o644))

	got, err := loadSelection([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{"#hero", ".btn-primary", "nav > a"}, got)

	got, err = loadSelection([]string{".card", ".chip"})
	require.NoError(t, err)
	assert.Equal(t, []string{".card", ".chip"}, got)

	got, err = loadSelection([]string{".only"})
	require.NoError(t, err)
	assert.Equal(t, []string{".only"}, got)
}

func TestParseAxes(t *testing.T) {
	pages, bps, err := parseAxes([]string{"https://example.com", "docs=https://example.com/docs"}, []string{"mobile", "wide=1920x1080"})
	require.NoError(t, err)
	assert.Equal(t, []tokensmith.Page{
		{Name: "home", URL: "https://example.com"},
		{Name: "docs", URL: "https://example.com/docs"},
	}, pages)
	assert.Equal(t, "wide", bps[1].Name)
	assert.Equal(t, 1920, bps[1].Width)

	_, _, err = parseAxes(nil, []string{"watch"})
	assert.Error(t, err)
}

func TestInitCommand_CreatesConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	rootCmd.SetArgs([]string{"init"})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(".tokensmith.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "collect:")
	assert.Contains(t, string(data), "run:")
	assert.Contains(t, string(data), "output:")

	// the generated file must load cleanly
	resetKoanf()
	require.NoError(t, loadConfigFromPath(".tokensmith.yaml"))
	cfg, err := buildRunConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.PageTimeout)
	assert.Equal(t, 50*time.Millisecond, cfg.States.Settle)
}

func TestInitCommand_RefusesOverwrite(t *testing.T) {
	t.Chdir(t.TempDir())
	require.NoError(t, os.WriteFile(".tokensmith.yaml", []byte("existing"), 0o644))

	err := writeDefaultConfig(".tokensmith.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, writeDefaultConfig(".tokensmith.yaml", true))
	data, err := os.ReadFile(".tokensmith.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "collect:")
}

func TestVersionCommand(t *testing.T) {
	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())
}

func TestCompletionCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	t.Cleanup(func() { rootCmd.SetOut(nil) })

	rootCmd.SetArgs([]string{"completion", "bash"})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "tokensmith")

	rootCmd.SetArgs([]string{"completion", "tcsh"})
	assert.Error(t, rootCmd.Execute())
}

func TestAnalyzeCommand_WritesArtifacts(t *testing.T) {
	resetKoanf()
	dir := t.TempDir()
	t.Chdir(dir)

	ev := tokens.PageEvidence{
		Page:       "home",
		Breakpoint: "desktop",
		URL:        "https://example.test/",
		Candidates: []tokens.Candidate{
			{
				SelectorPath: "#cta", Tag: "button", Text: "Sign up", Visible: true,
				BBox:   tokens.BBox{W: 120, H: 44},
				Styles: map[string]string{"background-color": "rgb(26, 115, 232)", "color": "rgb(255, 255, 255)", "font-size": "16px"},
			},
			{
				SelectorPath: "main", Tag: "main", Role: "main", Visible: true,
				BBox:   tokens.BBox{W: 1440, H: 900},
				Styles: map[string]string{"background-color": "rgb(255, 255, 255)", "color": "rgb(17, 17, 17)"},
			},
		},
	}
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll("captures", 0o755))
	require.NoError(t, os.WriteFile(filepath.Join("captures", "home-desktop.json"), data, 0o644))

	rootCmd.SetArgs([]string{"analyze", "captures/*.json",
		"--quiet", "--output-dir", "out", "--run-id", "cli-test", "--ledger", "out/ledger.db"})
	require.NoError(t, rootCmd.Execute())

	for _, name := range []string{tokensmith.SamplesFile, tokensmith.ResultsFile, "tokens.css", "ledger.db"} {
		assert.FileExists(t, filepath.Join("out", name))
	}

	var results map[string]any
	data, err = os.ReadFile(filepath.Join("out", tokensmith.ResultsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &results))
	assert.Equal(t, "cli-test", results["run_id"])
}

func TestGetStringWithFallback(t *testing.T) {
	resetKoanf()
	assert.Equal(t, "default", getStringWithFallback("flag-key", "config.key", "default"))

	require.NoError(t, k.Set("config.key", "from-config"))
	assert.Equal(t, "from-config", getStringWithFallback("flag-key", "config.key", "default"))

	require.NoError(t, k.Set("flag-key", "from-flag"))
	assert.Equal(t, "from-flag", getStringWithFallback("flag-key", "config.key", "default"))
}

func TestGetFallbacks_Defaults(t *testing.T) {
	resetKoanf()

	assert.False(t, getBoolWithFallback("flag-key", "config.key", false))
	assert.True(t, getBoolWithFallback("flag-key", "config.key", true))
	assert.Equal(t, 42, getIntWithFallback("flag-key", "config.key", 42))
	assert.InDelta(t, 3.14, getFloat64WithFallback("flag-key", "config.key", 3.14), 0.01)
	assert.Equal(t, time.Minute, getDurationWithFallback("flag-key", "config.key", time.Minute))
	assert.Equal(t, []string{"a"}, getStringsWithFallback("flag-key", "config.key", []string{"a"}))
}
