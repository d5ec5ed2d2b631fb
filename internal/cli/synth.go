package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/sitepipe/internal/ir"
	"github.com/roach88/sitepipe/internal/stack"
	"github.com/roach88/sitepipe/internal/store"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Output   string // definition JSON file
	Database string // optional store to record the definition in
}

// SynthResult is the JSON payload of a successful synth.
type SynthResult struct {
	ID         string         `json:"id"`
	Digest     string         `json:"digest"`
	Pipeline   string         `json:"pipeline"`
	Output     string         `json:"output,omitempty"`
	Stored     *bool          `json:"stored,omitempty"`
	Definition *ir.Definition `json:"definition"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <stack-file>",
		Short: "Synthesize the pipeline definition for a stack",
		Long: `Synthesize the pipeline, roles, policies, webhook and invoke grant for a
stack file (.cue, .yaml or .yml).

The webhook secret is read from the environment variable named by
source.secret_env. It never appears in any output.

Example:
  sitepipe synth stack.cue
  sitepipe synth stack.yaml -o definition.json --db sitepipe.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the definition JSON to this file")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the definition in this SQLite database")

	return cmd
}

func runSynth(opts *SynthOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	s, err := ResolveStack(path)
	if err != nil {
		return reportLoadFailure(formatter, err)
	}
	formatter.VerboseLog("Loaded stack %s-%s from %s", s.Project, s.StageLabel, path)

	def, err := stack.Synthesize(s, stack.WithLogger(logger))
	if err != nil {
		return reportLoadFailure(formatter, err)
	}

	result := SynthResult{
		ID:         def.ID,
		Digest:     def.Digest,
		Pipeline:   def.Pipeline.Name,
		Definition: def,
	}

	if opts.Output != "" {
		if err := writeDefinitionFile(def, opts.Output); err != nil {
			return formatter.fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
		result.Output = opts.Output
	}

	if opts.Database != "" {
		inserted, err := recordDefinition(cmd.Context(), opts.Database, def)
		if err != nil {
			return formatter.fail(ExitCommandError, ErrCodeDatabase, err.Error(), nil)
		}
		result.Stored = &inserted
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputSynthText(formatter, result)
}

func outputSynthText(formatter *OutputFormatter, result SynthResult) error {
	fmt.Fprintf(formatter.Writer, "✓ Synthesized %s\n", result.Pipeline)
	fmt.Fprintf(formatter.Writer, "  id:     %s\n", result.ID)
	fmt.Fprintf(formatter.Writer, "  digest: %s\n\n", result.Digest)

	if err := stack.WriteSummary(formatter.Writer, result.Definition); err != nil {
		return err
	}

	if result.Output != "" {
		fmt.Fprintf(formatter.Writer, "\nWrote definition to %s\n", result.Output)
	}
	if result.Stored != nil {
		if *result.Stored {
			fmt.Fprintln(formatter.Writer, "Recorded definition in database")
		} else {
			fmt.Fprintln(formatter.Writer, "Definition already recorded")
		}
	}
	return nil
}

func recordDefinition(ctx context.Context, path string, def *ir.Definition) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	st, err := store.Open(path)
	if err != nil {
		return false, fmt.Errorf("open database: %w", err)
	}
	defer st.Close()
	return st.WriteDefinition(ctx, def)
}

// writeDefinitionFile writes def as indented JSON. The secret is encoded as
// its placeholder.
func writeDefinitionFile(def *ir.Definition, filename string) error {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling definition: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
