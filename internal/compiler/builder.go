package compiler

import (
	"fmt"
	"io"
	"strings"

	"github.com/Norgate-AV/vsmeta/internal/model"
)

// unresolved marks a reference the resolver could not expand
var unresolved = []string{"$(", "%("}

// CommandBuilder handles building compiler arguments
type CommandBuilder struct {
	includeFlag string
	defineFlag  string
}

// NewCommandBuilder creates a new command builder for the given style.
// Unknown styles fall back to msvc.
func NewCommandBuilder(style Style) *CommandBuilder {
	if style == StyleGNU {
		return &CommandBuilder{includeFlag: "-I", defineFlag: "-D"}
	}

	return &CommandBuilder{includeFlag: "/I", defineFlag: "/D"}
}

// BuildCommandArgs builds the include and define arguments for a project.
// Include directories come first, in search order.
func (cb *CommandBuilder) BuildCommandArgs(d model.ProjectDescriptor) []string {
	var cmdArgs []string

	for _, dir := range d.IncludeDirs {
		if dir != "" {
			cmdArgs = append(cmdArgs, cb.includeFlag+dir)
		}
	}

	for _, def := range d.Definitions {
		if def == "" || isUnresolved(def) {
			continue
		}

		cmdArgs = append(cmdArgs, cb.defineFlag+def)
	}

	return cmdArgs
}

// PrintBuildInfo prints verbose information about a resolved project
func (cb *CommandBuilder) PrintBuildInfo(w io.Writer, d model.ProjectDescriptor, cmdArgs []string) {
	fmt.Fprintf(w, "Project: %s\nPath: %s\nConfiguration: %s\nOutDir: %s\nIncludeDirs: %v\nDefinitions: %v\nFlags: %s\n",
		d.Name, d.Path, d.ConfigPlatform(), d.OutputDir, d.IncludeDirs, d.Definitions, strings.Join(cmdArgs, " "))
}

func isUnresolved(s string) bool {
	for _, marker := range unresolved {
		if strings.Contains(s, marker) {
			return true
		}
	}

	return false
}
