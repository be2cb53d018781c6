package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/yacobolo/tokensmith"
	"github.com/yacobolo/tokensmith/internal/collector"
	"github.com/yacobolo/tokensmith/internal/tokens"
)

const defaultConfigPath = ".tokensmith.yaml"

var k = koanf.New(".")

// loadConfig loads configuration with precedence: flags > env > file > defaults.
// It must be called after cobra parses flags (in PreRunE or RunE).
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if err := loadConfigFromPath(configPath); err != nil {
		return err
	}

	// only flags the user actually set, so flag defaults never mask the file
	fs := cmd.Flags()
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return f.Name, posflag.FlagVal(fs, f)
	}), nil); err != nil {
		return fmt.Errorf("loading command flags: %w", err)
	}

	return nil
}

// loadConfigFromPath loads configuration from a file and environment variables.
// This is separated from loadConfig to allow testing without a cobra command.
func loadConfigFromPath(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("TOKENSMITH_", ".", func(s string) string {
		// TOKENSMITH_RUN_PARALLELISM -> run.parallelism
		// TOKENSMITH_RUN_PAGE__TIMEOUT -> run.page-timeout
		s = strings.ToLower(strings.TrimPrefix(s, "TOKENSMITH_"))
		s = strings.ReplaceAll(s, "__", "-")
		return strings.ReplaceAll(s, "_", ".")
	}), nil); err != nil {
		return fmt.Errorf("loading environment variables: %w", err)
	}

	return nil
}

// buildRunConfig constructs the pipeline Config from koanf state.
// Pages, breakpoints and themes are filled in by the command.
func buildRunConfig(logger *slog.Logger) (tokensmith.Config, error) {
	selected, err := loadSelection(getStringsWithFallback("selected", "run.selected", nil))
	if err != nil {
		return tokensmith.Config{}, err
	}

	cfg := tokensmith.Config{
		Parallelism: getIntWithFallback("parallelism", "run.parallelism", 2),
		PageTimeout: getDurationWithFallback("page-timeout", "run.page-timeout", 30*time.Second),
		Validator: tokens.ValidatorConfig{
			MinBBox:      getFloat64WithFallback("min-bbox", "run.min-bbox", 24),
			BroadCapture: getBoolWithFallback("broad-capture", "run.broad-capture", false),
			Selected:     selected,
			MaxPerGroup:  getIntWithFallback("max-per-group", "run.max-per-group", 6),
		},
		States: tokens.StateConfig{
			AllowUnsafe:       getBoolWithFallback("allow-unsafe-states", "run.allow-unsafe-states", false),
			StabilizeAttempts: getIntWithFallback("stabilize-attempts", "run.stabilize-attempts", 3),
			Settle:            getDurationWithFallback("settle", "run.settle", 50*time.Millisecond),
		},
		MinRoleEvidence: getIntWithFallback("min-role-evidence", "run.min-role-evidence", 2),
		MaxVarDepth:     getIntWithFallback("max-var-depth", "run.max-var-depth", tokens.DefaultMaxVarDepth),
		Styling: tokens.StylingSystem{
			Name:       getStringWithFallback("styling", "run.styling.name", ""),
			Confidence: getStringWithFallback("styling-confidence", "run.styling.confidence", "unknown"),
		},
		RunID:  getStringWithFallback("run-id", "run.id", ""),
		Logger: logger,
	}

	if k.Exists("run.noise") {
		// unset fields keep their defaults
		noise := tokens.DefaultNoise()
		if err := k.Unmarshal("run.noise", &noise); err != nil {
			return tokensmith.Config{}, fmt.Errorf("run.noise: %w", err)
		}
		cfg.States.Noise = noise
	}

	if k.Exists("run.policies") {
		// entries override the built-in policy field by field
		policies := tokens.DefaultPolicies()
		for _, cat := range k.MapKeys("run.policies") {
			p := policies[tokens.Category(cat)]
			if err := k.Unmarshal("run.policies."+cat, &p); err != nil {
				return tokensmith.Config{}, fmt.Errorf("run.policies.%s: %w", cat, err)
			}
			policies[tokens.Category(cat)] = p
		}
		cfg.Policies = policies
	}

	return cfg, nil
}

// buildBrowserConfig constructs the rod collector Config from koanf state.
func buildBrowserConfig(logger *slog.Logger) collector.Config {
	return collector.Config{
		RemoteURL:      getStringWithFallback("remote-url", "collect.remote-url", ""),
		Bin:            getStringWithFallback("browser-bin", "collect.browser-bin", ""),
		Headful:        getBoolWithFallback("headful", "collect.headful", false),
		LoadsPerSecond: getFloat64WithFallback("loads-per-second", "collect.loads-per-second", 2),
		StylesheetTTL:  getDurationWithFallback("stylesheet-ttl", "collect.stylesheet-ttl", 10*time.Minute),
		IdleWait:       getDurationWithFallback("idle-wait", "collect.idle-wait", time.Second),
		BroadCapture:   getBoolWithFallback("broad-capture", "run.broad-capture", false),
		Logger:         logger,
	}
}

// parseAxes turns page and breakpoint specs into pipeline axes
func parseAxes(pageSpecs, bpSpecs []string) ([]tokensmith.Page, []tokensmith.Breakpoint, error) {
	var pages []tokensmith.Page
	for _, s := range pageSpecs {
		p, err := tokensmith.ParsePage(s)
		if err != nil {
			return nil, nil, err
		}
		pages = append(pages, p)
	}
	var bps []tokensmith.Breakpoint
	for _, s := range bpSpecs {
		bp, err := tokensmith.ParseBreakpoint(s)
		if err != nil {
			return nil, nil, err
		}
		bps = append(bps, bp)
	}
	return pages, bps, nil
}

// loadSelection expands a single file argument into its selectors, one per
// line. Lines starting with "# " are comments; "#id" is a selector.
func loadSelection(entries []string) ([]string, error) {
	if len(entries) != 1 {
		return entries, nil
	}
	f, err := os.Open(entries[0])
	if err != nil {
		// not a file: a single selector
		return entries, nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "# ") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading selection %s: %w", entries[0], err)
	}
	return out, nil
}

// getStringWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringWithFallback(flagKey, configKey, defaultVal string) string {
	if v := k.String(flagKey); v != "" {
		return v
	}
	if v := k.String(configKey); v != "" {
		return v
	}
	return defaultVal
}

// getStringsWithFallback checks the flag key first, then the config file key, then returns the default.
func getStringsWithFallback(flagKey, configKey string, defaultVal []string) []string {
	if v := k.Strings(flagKey); len(v) > 0 {
		return v
	}
	if v := k.Strings(configKey); len(v) > 0 {
		return v
	}
	return defaultVal
}

// getBoolWithFallback checks the flag key first, then the config file key, then returns the default.
func getBoolWithFallback(flagKey, configKey string, defaultVal bool) bool {
	if k.Exists(flagKey) {
		return k.Bool(flagKey)
	}
	if k.Exists(configKey) {
		return k.Bool(configKey)
	}
	return defaultVal
}

// getIntWithFallback checks the flag key first, then the config file key, then returns the default.
func getIntWithFallback(flagKey, configKey string, defaultVal int) int {
	if k.Exists(flagKey) {
		return k.Int(flagKey)
	}
	if k.Exists(configKey) {
		return k.Int(configKey)
	}
	return defaultVal
}

// getFloat64WithFallback checks the flag key first, then the config file key, then returns the default.
func getFloat64WithFallback(flagKey, configKey string, defaultVal float64) float64 {
	if k.Exists(flagKey) {
		return k.Float64(flagKey)
	}
	if k.Exists(configKey) {
		return k.Float64(configKey)
	}
	return defaultVal
}

func getDurationWithFallback(flagKey, configKey string, defaultVal time.Duration) time.Duration {
	if k.Exists(flagKey) {
		return k.Duration(flagKey)
	}
	if k.Exists(configKey) {
		return k.Duration(configKey)
	}
	return defaultVal
}
