// Package main provides the repolens CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/repolens/cli"
)

var (
	// Global flags
	provider   string
	configPath string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "repolens",
		Short: "Analyze Python projects and draw their workflows",
		Long: `A CLI tool that reads the Python files of a project and asks a language model for
a structured technical analysis.

Each analysis produces:
- A report with overview, features, libraries, workflow, implementation,
  strengths and areas for improvement
- A system workflow diagram and a user workflow diagram (SVG)

Sources are local directories or GitHub repository URLs. Set GITHUB_TOKEN
for private repositories or higher rate limits.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (together, openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")

	// Add commands
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(lastCmd())
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(showCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider:   provider,
		ConfigPath: configPath,
		Verbose:    verbose,
	}
}

func analyzeCmd() *cobra.Command {
	aopts := cli.DefaultAnalyzeOptions()

	cmd := &cobra.Command{
		Use:   "analyze [source]",
		Short: "Analyze a project and render its workflow diagrams",
		Long: `Analyze the Python files of a local directory or GitHub repository.

Without a source, the last analyzed source is used. A stored run with the
same files and model is reused unless --fresh is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return cli.Analyze(cmd.Context(), ref, aopts, options())
		},
	}

	cmd.Flags().StringVarP(&aopts.OutDir, "out", "o", aopts.OutDir, "Directory for report.md and the SVG diagrams")
	cmd.Flags().BoolVar(&aopts.Fresh, "fresh", false, "Ignore stored runs and analyze again")
	cmd.Flags().BoolVar(&aopts.Mermaid, "mermaid", false, "Also write mermaid flowcharts (fresh runs only)")

	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question> [source]",
		Short: "Ask a single question about a project",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			return cli.Ask(cmd.Context(), args[0], ref, options())
		},
	}
}

func lastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Print the last analyzed source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Last(cmd.Context(), options())
		},
	}
}

func historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.History(cmd.Context(), limit, options())
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to list (0 for all)")

	return cmd
}

func showCmd() *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run by ID or unique ID prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Show(cmd.Context(), args[0], outDir, options())
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Also write the report and diagrams to this directory")

	return cmd
}
