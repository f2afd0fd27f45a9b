// Package solution reads Visual C++ solution (.sln) files.
//
// A solution is read in a single forward pass. Each line is classified by a
// small state machine:
//
//  1. Outside any global section, project declaration lines register a
//     project stub, unless the line matches the exclusion pattern.
//  2. Inside SolutionConfigurationPlatforms, the declared configuration|platform
//     pairs are checked against the requested one.
//  3. Inside ProjectConfigurationPlatforms, the ActiveCfg entries for the
//     requested pair give each project its own configuration and platform.
//
// After the pass, the requested pair must have been declared and every
// registered project must have received an ActiveCfg mapping.
package solution

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/Norgate-AV/vsmeta/internal/codes"
	"github.com/Norgate-AV/vsmeta/internal/model"
)

// Extension is the file extension of solution files
const Extension = ".sln"

// projectExtension marks the declarations that carry C++ build metadata.
// Solution folders and other project kinds are not registered.
const projectExtension = ".vcxproj"

type lineState int

const (
	stateDefault lineState = iota
	stateSolutionConfig
	stateProjectConfig
)

var (
	// Project("{solution}") = "name", "path", "{id}"
	projectLine = regexp.MustCompile(
		`^\s*Project\("\{(?P<solution>[^}]*)\}"\)\s*=\s*"(?P<name>[^"]*)"\s*,\s*"(?P<path>[^"]*)"\s*,\s*"\{(?P<id>[^}]*)\}"`)

	solutionConfigStart = regexp.MustCompile(`^\s*GlobalSection\(SolutionConfigurationPlatforms\)`)
	projectConfigStart  = regexp.MustCompile(`^\s*GlobalSection\(ProjectConfigurationPlatforms\)`)
	sectionEnd          = regexp.MustCompile(`^\s*EndGlobalSection`)

	// Debug|Win32 = Debug|Win32
	solutionConfigLine = regexp.MustCompile(`^\s*(?P<key>[^=]+?)\s*=`)

	// {id}.Debug|Win32.ActiveCfg = Debug|x64
	activeCfgLine = regexp.MustCompile(
		`^\s*\{(?P<id>[^}]+)\}\.(?P<key>.+)\.ActiveCfg\s*=\s*(?P<configuration>[^|]+?)\|(?P<platform>.+?)\s*$`)
)

// Options tune which projects are registered.
type Options struct {
	// Exclude drops every project whose declaration line matches
	Exclude *regexp.Regexp
}

type parser struct {
	dir     string
	key     string
	exclude *regexp.Regexp

	state    lineState
	declared bool
	projects []model.ProjectDescriptor
	resolved []bool
	byID     map[string]int
}

// Parse reads the solution at path and returns one stub per registered
// project, in declaration order, carrying the project-level platform and
// configuration the solution maps the requested pair to.
//
// The returned stubs have no output directory, include directories or
// definitions; those come from the project files themselves.
func Parse(path, platform, configuration string, opts Options) ([]model.ProjectDescriptor, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, codes.FromFileError(absPath, err)
	}
	defer f.Close()

	p := &parser{
		dir:     filepath.Dir(absPath),
		key:     model.ConfigPlatform(configuration, platform),
		exclude: opts.Exclude,
		byID:    make(map[string]int),
	}

	if err := p.scan(f); err != nil {
		return nil, codes.FromFileError(absPath, err)
	}

	if err := p.validate(absPath); err != nil {
		return nil, err
	}

	return p.projects, nil
}

const utf8BOM = "\ufeff"

func (p *parser) scan(r io.Reader) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for s.Scan() {
		text := s.Text()
		if first {
			text = strings.TrimPrefix(text, utf8BOM)
			first = false
		}

		p.line(strings.TrimRight(text, "\r"))
	}

	return s.Err()
}

func (p *parser) line(text string) {
	switch p.state {
	case stateDefault:
		switch {
		case solutionConfigStart.MatchString(text):
			p.state = stateSolutionConfig
		case projectConfigStart.MatchString(text):
			p.state = stateProjectConfig
		default:
			p.declaration(text)
		}

	case stateSolutionConfig:
		if sectionEnd.MatchString(text) {
			p.state = stateDefault
			return
		}

		m := solutionConfigLine.FindStringSubmatch(text)
		if m != nil && m[solutionConfigLine.SubexpIndex("key")] == p.key {
			p.declared = true
		}

	case stateProjectConfig:
		if sectionEnd.MatchString(text) {
			p.state = stateDefault
			return
		}

		p.activeCfg(text)
	}
}

func (p *parser) declaration(text string) {
	m := projectLine.FindStringSubmatch(text)
	if m == nil {
		return
	}

	if p.exclude != nil && p.exclude.MatchString(text) {
		log.Debugf("excluding project declaration %q", m[projectLine.SubexpIndex("name")])
		return
	}

	rel := m[projectLine.SubexpIndex("path")]
	if !strings.EqualFold(filepath.Ext(rel), projectExtension) {
		return
	}

	projectPath := filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/"))
	if !filepath.IsAbs(projectPath) {
		projectPath = filepath.Join(p.dir, projectPath)
	}

	stub := model.NewStub(projectPath, p.dir, "", "")
	stub.ID = m[projectLine.SubexpIndex("id")]
	stub.SolutionID = m[projectLine.SubexpIndex("solution")]

	p.byID[strings.ToUpper(stub.ID)] = len(p.projects)
	p.projects = append(p.projects, stub)
	p.resolved = append(p.resolved, false)

	log.Debugf("registered project %s (%s)", stub.Name, stub.ID)
}

func (p *parser) activeCfg(text string) {
	m := activeCfgLine.FindStringSubmatch(text)
	if m == nil || m[activeCfgLine.SubexpIndex("key")] != p.key {
		return
	}

	i, ok := p.byID[strings.ToUpper(m[activeCfgLine.SubexpIndex("id")])]
	if !ok {
		return
	}

	p.projects[i].Configuration = m[activeCfgLine.SubexpIndex("configuration")]
	p.projects[i].Platform = m[activeCfgLine.SubexpIndex("platform")]
	p.resolved[i] = true
}

func (p *parser) validate(path string) error {
	if !p.declared {
		return fmt.Errorf("%w: %s is not declared in %s", codes.ErrConfigurationNotFound, p.key, path)
	}

	for i, ok := range p.resolved {
		if !ok {
			return fmt.Errorf("%w: project %s has no ActiveCfg for %s in %s",
				codes.ErrConfigurationNotFound, p.projects[i].Name, p.key, path)
		}
	}

	return nil
}
