package project

import (
	"path/filepath"
	"regexp"
	"strings"
)

// listSeparator splits list-valued properties
const listSeparator = ";"

var variable = regexp.MustCompile(`\$\(([^()]+)\)`)

// substituter expands $(name) references in captured property text.
type substituter struct {
	solutionDir   string
	configuration string
	platform      string
	overrides     map[string]string
}

func newSubstituter(baseDir, configuration, platform string, overrides map[string]string) substituter {
	dir := baseDir
	if !strings.HasSuffix(dir, string(filepath.Separator)) {
		dir += string(filepath.Separator)
	}

	return substituter{
		solutionDir:   dir,
		configuration: configuration,
		platform:      platform,
		overrides:     overrides,
	}
}

// expand replaces the built-in variables and any variable present in the
// override map. Unknown variables are left untouched.
func (s substituter) expand(text string) string {
	return variable.ReplaceAllStringFunc(text, func(ref string) string {
		name := ref[2 : len(ref)-1]

		switch name {
		case "SolutionDir":
			return s.solutionDir
		case "Configuration":
			return s.configuration
		case "Platform":
			return s.platform
		}

		if v, ok := s.overrides[name]; ok {
			return v
		}

		return ref
	})
}

// includeDirs expands and splits an include directory list. Entries that are
// empty or still start with a $ or % reference are dropped.
func (s substituter) includeDirs(raw string) []string {
	dirs := []string{}

	for _, entry := range strings.Split(s.expand(raw), listSeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" || strings.HasPrefix(entry, "$") || strings.HasPrefix(entry, "%") {
			continue
		}

		dirs = append(dirs, filepath.Clean(normalizePath(entry)))
	}

	return dirs
}

// definitions expands and splits a preprocessor definition list. Unlike
// include directories, nothing is filtered out: build tools treat unresolved
// references in definitions as opaque text, so they are kept as written.
func (s substituter) definitions(raw string) []string {
	defs := []string{}

	expanded := s.expand(raw)
	if strings.TrimSpace(expanded) == "" {
		return defs
	}

	for _, entry := range strings.Split(expanded, listSeparator) {
		defs = append(defs, strings.TrimSpace(entry))
	}

	return defs
}

// normalizePath converts the backslashes used by descriptor files to the
// host separator.
func normalizePath(p string) string {
	return filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
}
