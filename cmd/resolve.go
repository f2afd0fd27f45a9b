package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/vsmeta/internal/cache"
	"github.com/Norgate-AV/vsmeta/internal/compiler"
	"github.com/Norgate-AV/vsmeta/internal/config"
	"github.com/Norgate-AV/vsmeta/internal/model"
	"github.com/Norgate-AV/vsmeta/internal/project"
	"github.com/Norgate-AV/vsmeta/internal/resolver"
	"github.com/Norgate-AV/vsmeta/internal/solution"
)

var resolveCmd = &cobra.Command{
	Use:          "resolve [file]",
	Short:        "Resolve build metadata",
	Long:         `Resolve the build metadata of every project in a solution, or of a single project, for one platform and configuration.`,
	RunE:         runResolve,
	SilenceUsage: true,
}

func init() {
	addResolveFlags(resolveCmd)
}

// resolvedProject is the JSON shape of one result
type resolvedProject struct {
	model.ProjectDescriptor
	Flags []string `json:"flags"`
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, projects, err := resolveFile(cmd, args)
	if err != nil {
		return err
	}

	style, err := compiler.ParseStyle(cfg.Style)
	if err != nil {
		return err
	}

	return writeResult(cmd.OutOrStdout(), cfg.Format, style, projects)
}

// resolveFile loads the configuration for the single file argument and
// resolves it
func resolveFile(cmd *cobra.Command, args []string) (*config.Config, []model.ProjectDescriptor, error) {
	if len(args) != 1 {
		return nil, nil, fmt.Errorf("requires exactly one file argument")
	}

	file := args[0]
	ext := strings.ToLower(filepath.Ext(file))
	if ext != solution.Extension && ext != project.Extension {
		return nil, nil, fmt.Errorf("file must have %s or %s extension", solution.Extension, project.Extension)
	}

	loader := config.NewLoader()
	cfg, err := loader.LoadForResolve(cmd, args)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	var opts []resolver.Option
	if !cfg.NoCache {
		c, err := cache.New(cfg.CacheDir)
		if err != nil {
			log.Warnf("descriptor cache disabled: %v", err)
		} else {
			defer c.Close()
			opts = append(opts, resolver.WithStore(c))
		}
	}

	log.Debug("resolving", "file", file, "platform", cfg.Platform, "configuration", cfg.Configuration)

	projects, err := resolver.New(opts...).Resolve(resolver.Request{
		File:          file,
		Platform:      cfg.Platform,
		Configuration: cfg.Configuration,
		Exclude:       cfg.ExcludePattern,
		Overrides:     cfg.Overrides,
	})
	if err != nil {
		return nil, nil, err
	}

	return cfg, projects, nil
}

func writeResult(w io.Writer, format string, style compiler.Style, projects []model.ProjectDescriptor) error {
	cb := compiler.NewCommandBuilder(style)

	if format == "text" {
		for i, p := range projects {
			if i > 0 {
				fmt.Fprintln(w)
			}
			cb.PrintBuildInfo(w, p, cb.BuildCommandArgs(p))
		}

		return nil
	}

	out := make([]resolvedProject, 0, len(projects))
	for _, p := range projects {
		out = append(out, resolvedProject{
			ProjectDescriptor: p,
			Flags:             cb.BuildCommandArgs(p),
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = fmt.Fprintln(w, string(data))
	return err
}
