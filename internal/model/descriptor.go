package model

import (
	"path/filepath"
	"slices"
	"strings"
)

// ProjectDescriptor holds the build metadata resolved for one project file
// and one (platform, configuration) pair.
//
// A descriptor is fully populated before it is handed to a caller.
type ProjectDescriptor struct {
	// Name is the project file name without its extension
	Name string `json:"name"`

	// ID is the project identifier declared in the solution (empty for a standalone project)
	ID string `json:"id,omitempty"`

	// SolutionID is the identifier of the containing solution (empty for a standalone project)
	SolutionID string `json:"solution_id,omitempty"`

	// Path is the absolute path to the project file
	Path string `json:"path"`

	// BaseDir resolves $(SolutionDir) and the default output directory
	BaseDir string `json:"base_dir"`

	Platform      string `json:"platform"`
	Configuration string `json:"configuration"`

	// OutputDir is always absolute after a successful parse
	OutputDir string `json:"output_dir"`

	// IncludeDirs is a search order, do not sort
	IncludeDirs []string `json:"include_dirs"`

	Definitions []string `json:"definitions"`
}

// NewStub creates an unresolved descriptor for the project file at path.
func NewStub(path, baseDir, platform, configuration string) ProjectDescriptor {
	return ProjectDescriptor{
		Name:          NameFromPath(path),
		Path:          path,
		BaseDir:       baseDir,
		Platform:      platform,
		Configuration: configuration,
	}
}

// Clone returns a copy that shares no backing arrays with d.
func (d ProjectDescriptor) Clone() ProjectDescriptor {
	d.IncludeDirs = slices.Clone(d.IncludeDirs)
	d.Definitions = slices.Clone(d.Definitions)

	return d
}

// Key returns the "platform-configuration" string used to index cached results.
func (d ProjectDescriptor) Key() string {
	return Key(d.Platform, d.Configuration)
}

// ConfigPlatform returns the "configuration|platform" form used by descriptor files.
func (d ProjectDescriptor) ConfigPlatform() string {
	return ConfigPlatform(d.Configuration, d.Platform)
}

// Key joins a platform and a configuration into a cache key.
func Key(platform, configuration string) string {
	return platform + "-" + configuration
}

// ConfigPlatform joins a configuration and a platform the way solution and
// project files spell them.
func ConfigPlatform(configuration, platform string) string {
	return configuration + "|" + platform
}

// NameFromPath strips directory and extension from a project path.
// Both separator styles are accepted since solutions always use backslashes.
func NameFromPath(path string) string {
	base := filepath.Base(strings.ReplaceAll(path, `\`, "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
