package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/syncbridge/internal/infrastructure/config"
	"github.com/jbctechsolutions/syncbridge/internal/presentation/cli/output"
)

// InitResult holds the result of the init command for JSON output.
type InitResult struct {
	ConfigDir   string `json:"config_dir"`
	ConfigFile  string `json:"config_file"`
	Initialized bool   `json:"initialized"`
}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize syncbridge configuration",
		Long: `Initialize syncbridge configuration interactively.

This command creates the ~/.syncbridge/ directory and generates a
config.yaml with your remote service settings.

The initialization process will:
  • Create ~/.syncbridge/ directory
  • Prompt for the remote service base URL
  • Prompt for a connectivity probe endpoint
  • Generate ~/.syncbridge/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")

	return cmd
}

// prompter handles interactive user input.
type prompter struct {
	reader    *bufio.Reader
	formatter *output.Formatter
}

// newPrompter creates a new prompter.
func newPrompter(formatter *output.Formatter) *prompter {
	return &prompter{
		reader:    bufio.NewReader(os.Stdin),
		formatter: formatter,
	}
}

// prompt asks a question and returns the answer (or default if empty).
func (p *prompter) prompt(question, defaultValue string) (string, error) {
	if defaultValue != "" {
		p.formatter.Print("%s [%s]: ", question, defaultValue)
	} else {
		p.formatter.Print("%s: ", question)
	}

	answer, err := p.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return defaultValue, nil
	}
	return answer, nil
}

func runInit(force bool) error {
	format := output.FormatText
	if globalFlags.Output == "json" {
		format = output.FormatJSON
	}
	formatter := output.NewFormatter(
		output.WithFormat(format),
		output.WithColor(format != output.FormatJSON && output.IsColorSupported()),
	)

	loader, err := config.NewLoader("")
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	configPath := loader.DefaultConfigPath()
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.NewDefaultConfig()

	// JSON output implies non-interactive use: write defaults and stop
	if format != output.FormatJSON {
		formatter.Header("Syncbridge Setup")
		formatter.Println("")

		p := newPrompter(formatter)

		baseURL, err := p.prompt("Remote service base URL", "")
		if err != nil {
			return err
		}
		cfg.Remote.BaseURL = baseURL

		defaultProbe := ""
		if baseURL != "" {
			defaultProbe = strings.TrimSuffix(baseURL, "/") + "/health"
		}
		probeURL, err := p.prompt("Connectivity probe URL", defaultProbe)
		if err != nil {
			return err
		}
		cfg.Connectivity.ProbeURL = probeURL
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := loader.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	if format == output.FormatJSON {
		return formatter.JSON(InitResult{
			ConfigDir:   loader.ConfigDir(),
			ConfigFile:  configPath,
			Initialized: true,
		})
	}

	formatter.Println("")
	formatter.Success("Configuration written to %s", configPath)
	formatter.Info("Run 'sb status' to check connectivity")
	return nil
}
