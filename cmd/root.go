package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Norgate-AV/vsmeta/internal/codes"
	"github.com/Norgate-AV/vsmeta/internal/version"
)

var rootCmd = &cobra.Command{
	Use:           "vsmeta [file]",
	Short:         "Visual C++ build metadata",
	Long:          `Resolve output directories, include directories and preprocessor definitions from Visual C++ solution and project files`,
	RunE:          runResolve,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.ArbitraryArgs,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		code := codes.ExitCode(err)
		log.Error(codes.GetErrorMessage(code), "err", err)
		os.Exit(code)
	}
}

func init() {
	rootCmd.Version = fmt.Sprintf("%s (%s) %s", version.Version, version.Commit, version.BuildTime)
	addResolveFlags(rootCmd)
	rootCmd.PersistentFlags().String("cache-dir", "", "Descriptor cache directory (default .vsmeta-cache)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(cacheCmd)
}
