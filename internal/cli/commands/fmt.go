package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/forthls/pkg/format"
)

// FmtOptions holds options for the fmt command.
type FmtOptions struct {
	Write bool
	Check bool
}

// NewFmtCommand creates the fmt command.
func NewFmtCommand() *cobra.Command {
	opts := &FmtOptions{}
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Format a Forth source file",
		Long: `Format a Forth source file with the project's format settings and
print the result.

Reads standard input when no file (or "-") is given. With --write the file
is rewritten in place; with --check nothing is printed and the command fails
if the file is not already formatted.`,
		Example: `  # Print a formatted file
  forthls fmt lib/math.fs

  # Rewrite a file in place
  forthls fmt -w lib/math.fs

  # Fail in CI when a file needs formatting
  forthls fmt --check lib/math.fs`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFmt(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write the result back to the file")
	cmd.Flags().BoolVar(&opts.Check, "check", false, "Fail if the file is not formatted")

	return cmd
}

func runFmt(cmd *cobra.Command, args []string, opts *FmtOptions) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	path := optionalArg(args, 0)
	if opts.Write && (path == "" || path == "-") {
		return errors.New("--write needs a file")
	}

	name, text, err := readSource(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	formatted := format.Source(text, cmdCtx.Cfg.Format.Options())
	cmdCtx.Logger.Debug("Formatted", "file", name, "changed", formatted != text)

	switch {
	case opts.Check:
		if formatted != text {
			return fmt.Errorf("%s is not formatted", name)
		}
		return nil
	case opts.Write:
		if formatted == text {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if err := os.WriteFile(path, []byte(formatted), info.Mode().Perm()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), formatted)
	return err
}
