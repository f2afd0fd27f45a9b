package cmd

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/vsmeta/internal/compiler"
)

var flagsCmd = &cobra.Command{
	Use:          "flags [file]",
	Short:        "Print compiler flags",
	Long:         `Print the include and define flags of every resolved project, one project per line.`,
	RunE:         runFlags,
	SilenceUsage: true,
}

func init() {
	addResolveFlags(flagsCmd)
}

// addResolveFlags registers the flags of every command that resolves a file
func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("platform", "p", "", "Platform to resolve (e.g., Win32, x64)")
	cmd.Flags().StringP("configuration", "c", "", "Configuration to resolve (e.g., Debug, Release)")
	cmd.Flags().StringP("exclude", "x", "", "Skip solution projects whose declaration matches this pattern")
	cmd.Flags().StringArrayP("define", "D", []string{}, "Variable override NAME=VALUE for $(NAME) references")
	cmd.Flags().Bool("no-cache", false, "Disable descriptor cache")
	cmd.Flags().StringP("format", "f", "", "Output format (json, text)")
	cmd.Flags().String("style", "", "Compiler flag style (msvc, gnu)")
}

func runFlags(cmd *cobra.Command, args []string) error {
	cfg, projects, err := resolveFile(cmd, args)
	if err != nil {
		return err
	}

	style, err := compiler.ParseStyle(cfg.Style)
	if err != nil {
		return err
	}

	flags := compiler.GetProjectFlags(projects, style)
	w := cmd.OutOrStdout()

	if cfg.Format == "text" {
		for _, f := range flags {
			fmt.Fprintf(w, "%s: %s\n", f.Project, strings.Join(f.Args, " "))
		}

		return nil
	}

	data, err := json.MarshalIndent(flags, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flags: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
