package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/CTAG07/graph-composer/pkg/corpus"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Every subcommand shares --config.
func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "composer",
		Short:         "Markov chain text composer",
		Long:          `Builds a first-order Markov chain from a text and composes new text by a weighted random walk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./config.json", "Path to the JSON config file")

	rootCmd.AddCommand(
		newComposeCmd(&configPath),
		newIngestCmd(&configPath),
		newServeCmd(&configPath),
		newVersionCmd(),
	)
	return rootCmd
}

func newComposeCmd(configPath *string) *cobra.Command {
	var (
		file       string
		corpusName string
		length     int
		seed       uint64
		policy     string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose text from a file or a stored corpus",
		Long:  `Reads a text, builds the chain, composes from it and prints (or writes) the result.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (corpusName == "") {
				return fmt.Errorf("exactly one of --file or --corpus is required")
			}
			req := ComposeRequest{Policy: policy}
			if cmd.Flags().Changed("length") {
				req.Length = &length
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}
			return runCompose(cmd, *configPath, file, corpusName, out, req)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Text file to compose from")
	cmd.Flags().StringVar(&corpusName, "corpus", "", "Stored corpus to compose from instead of --file")
	cmd.Flags().IntVarP(&length, "length", "n", 0, "Number of tokens to compose (default from config)")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "Seed for a reproducible composition")
	cmd.Flags().StringVarP(&policy, "policy", "p", "", "Dead-end policy: stop, restart or fail (default from config)")
	cmd.Flags().StringVarP(&out, "output", "o", "", "Write the composition to this file instead of stdout")
	return cmd
}

func newIngestCmd(configPath *string) *cobra.Command {
	var name, file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store a text file as a named corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, *configPath, name, file)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Corpus name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Text file to store")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "composer %s (commit %s, built %s)\n", Version, Commit, BuildDate)
		},
	}
}

// runCompose is the one-shot end to end run: read a text, build the graph,
// compose and print (or write) the result.
func runCompose(cmd *cobra.Command, configPath, file, corpusName, out string, req ComposeRequest) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), config.Server.LogLevel)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	service := NewComposeService(func() ComposerConfig { return *config.Composer }, logger)

	var text string
	var store *corpus.Store
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read text: %w", err)
		}
		text = string(data)
	} else {
		db, s, err := openStore(config.Server, logger)
		if err != nil {
			return err
		}
		defer func() {
			s.Close()
			_ = db.Close()
		}()
		store = s
		if text, err = store.GetText(ctx, corpusName); err != nil {
			return fmt.Errorf("failed to load corpus '%s': %w", corpusName, err)
		}
	}

	result, err := service.Compose(ctx, text, req)
	if err != nil {
		return err
	}

	if store != nil && config.Composer.RecordHistory {
		id, err := store.RecordComposition(ctx, corpus.Composition{
			Corpus:          corpusName,
			Seed:            result.Seed,
			Length:          result.Length,
			Text:            result.Text,
			TokenCount:      len(result.Tokens),
			TerminatedEarly: result.TerminatedEarly,
			Restarts:        result.Restarts,
		})
		if err != nil {
			logger.Error("Failed to record composition", "error", err)
		} else {
			logger.Info("Composition recorded", "id", id)
		}
	}
	if result.TerminatedEarly {
		logger.Warn("Composition stopped at a dead end", "requested", result.Length, "generated", len(result.Tokens))
	}

	if out != "" {
		if err = atomic.WriteFile(out, strings.NewReader(result.Text+"\n")); err != nil {
			return fmt.Errorf("failed to write composition: %w", err)
		}
		logger.Info("Composition written", "path", out, "tokens", len(result.Tokens))
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text)
	return err
}

// runIngest stores a text file under a corpus name.
func runIngest(cmd *cobra.Command, configPath, name, file string) error {
	config, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), config.Server.LogLevel)

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read text: %w", err)
	}

	db, store, err := openStore(config.Server, logger)
	if err != nil {
		return err
	}
	defer func() {
		store.Close()
		_ = db.Close()
	}()

	if err = store.PutText(context.Background(), name, string(data)); err != nil {
		return err
	}
	logger.Info("Corpus stored", "name", name, "size", len(data))
	return nil
}
