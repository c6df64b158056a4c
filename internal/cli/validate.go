package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/strata/internal/config"
	"github.com/roach88/strata/internal/harness"
)

// ValidationError describes one problem in one file.
type ValidationError struct {
	File    string `json:"file"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Files  int               `json:"files"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate scenario and config files without running them",
		Long: `Validate scenario YAML files and CUE config files.

Scenarios are parsed strictly, their component is looked up in the demo
catalog and expr assertions are compiled. Config files are checked against
the embedded schema.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var errs []ValidationError
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		errs = append(errs, validateFile(file)...)
	}

	result := ValidationResult{Valid: len(errs) == 0, Files: len(files), Errors: errs}
	if result.Valid {
		if opts.Format == "json" {
			return formatter.Success(result)
		}
		fmt.Fprintf(formatter.Writer, "✓ %d file(s) valid\n", len(files))
		return nil
	}

	if opts.Format == "json" {
		return formatter.Failure(errs[0].Code, fmt.Sprintf("validation failed with %d error(s)", len(errs)), result)
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "%s:%d\n", e.File, e.Line)
		} else {
			fmt.Fprintln(formatter.Writer, e.File)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", e.Code, e.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// validateFile dispatches on extension.
func validateFile(file string) []ValidationError {
	switch filepath.Ext(file) {
	case ".cue":
		_, err := config.Load(file)
		if err == nil {
			return nil
		}
		ve := ValidationError{File: file, Code: ErrCodeInvalid, Message: err.Error()}
		var cerr *config.Error
		if errors.As(err, &cerr) {
			ve.Message = cerr.Message
			if cerr.Pos.IsValid() {
				ve.Line = cerr.Pos.Line()
			}
		}
		return []ValidationError{ve}

	case ".yaml", ".yml":
		scenario, err := harness.LoadScenario(file)
		if err != nil {
			return []ValidationError{{File: file, Code: ErrCodeLoad, Message: err.Error()}}
		}
		var errs []ValidationError
		for _, problem := range harness.Check(scenario) {
			errs = append(errs, ValidationError{File: file, Code: ErrCodeInvalid, Message: problem})
		}
		return errs

	default:
		return []ValidationError{{
			File:    file,
			Code:    ErrCodeLoad,
			Message: "unsupported file type (want .yaml, .yml or .cue)",
		}}
	}
}
