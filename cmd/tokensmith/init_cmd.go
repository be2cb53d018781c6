package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default .tokensmith.yaml config file",
	Long:  `Create a .tokensmith.yaml configuration file in the current directory with the built-in defaults.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			path = defaultConfigPath
		}
		if err := writeDefaultConfig(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		return nil
	},
}

func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

const defaultConfig = `# tokensmith configuration
# Precedence: flags > TOKENSMITH_* env > this file > defaults

verbose: false
color: false

# Live collection
collect:
  pages:
    - "home=https://example.com"
  breakpoints:              # name=WxH or mobile | tablet | desktop
    - mobile
    - tablet
    - desktop
  themes:
    - light
  loads-per-second: 2       # per host, 0 = unlimited
  stylesheet-ttl: 10m
  idle-wait: 1s
  headful: false
  remote-url: ""            # connect to a running browser instead of launching one

# Replay of captured evidence
analyze:
  captures:
    - "captures/**/*.json"

# Pipeline settings shared by collect and analyze
run:
  parallelism: 2
  page-timeout: 30s
  broad-capture: false
  selected: []              # selectors, or a single file with one per line
  allow-unsafe-states: false
  min-bbox: 24
  max-per-group: 6
  min-role-evidence: 2
  max-var-depth: 8
  stabilize-attempts: 3
  settle: 50ms
  styling:
    name: ""                # tailwind | unocss | windi | css-modules | ...
    confidence: unknown     # confirmed | likely | possible | unknown
  ledger: ""                # e.g. .tokensmith/ledger.db
  # noise:                  # diff thresholds below which a state change is ignored
  #   length: 0.5           # px
  #   color: 1.0            # CIEDE2000
  #   opacity: 0.01
  #   duration: 1           # ms
  # policies:
  #   color:
  #     tolerance: 2.0
  #     max-scale: 12
  #     min-frequency: 2

output:
  dir: tokensmith-out
  format: summary           # summary | json | yaml | markdown
  template: ""
  report: ""
`

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
