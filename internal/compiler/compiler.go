// Package compiler turns resolved project descriptors into compiler command
// line arguments. It never runs a compiler itself.
package compiler

import (
	"fmt"
	"strings"

	"github.com/Norgate-AV/vsmeta/internal/model"
)

// Style selects the flag spelling of the target compiler
type Style string

const (
	// StyleMSVC produces cl.exe style flags (/I, /D)
	StyleMSVC Style = "msvc"

	// StyleGNU produces gcc/clang style flags (-I, -D)
	StyleGNU Style = "gnu"
)

// ParseStyle validates a style name
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(s)) {
	case StyleMSVC:
		return StyleMSVC, nil
	case StyleGNU:
		return StyleGNU, nil
	}

	return "", fmt.Errorf("invalid flag style: %s", s)
}

// ProjectFlags is the flag set produced for one project
type ProjectFlags struct {
	Project   string   `json:"project"`
	Path      string   `json:"path"`
	OutputDir string   `json:"output_dir"`
	Args      []string `json:"args"`
}

// GetProjectFlags builds the flags of every project, in order
func GetProjectFlags(projects []model.ProjectDescriptor, style Style) []ProjectFlags {
	cb := NewCommandBuilder(style)

	flags := make([]ProjectFlags, 0, len(projects))
	for _, p := range projects {
		flags = append(flags, ProjectFlags{
			Project:   p.Name,
			Path:      p.Path,
			OutputDir: p.OutputDir,
			Args:      cb.BuildCommandArgs(p),
		})
	}

	return flags
}
