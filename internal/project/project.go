// Package project reads Visual C++ project (.vcxproj) files.
//
// The document is streamed once. A stack of ancestor element names gives the
// canonical path of the current element ("Project/PropertyGroup/OutDir").
// Two cooperating states decide what is captured:
//
//   - The element state tracks whether the current grouping element applies to
//     the requested configuration. A group whose Condition names the requested
//     "configuration|platform" is active as a whole. A group without a
//     Condition is active too, but then each descendant's own Condition
//     decides. Leaving the group always returns to the ignore state.
//   - The capture state selects which property text is being accumulated while
//     inside an active group.
//
// Captured text is run through variable substitution before being split.
package project

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/Norgate-AV/vsmeta/internal/codes"
	"github.com/Norgate-AV/vsmeta/internal/model"
)

// Extension is the file extension of project files
const Extension = ".vcxproj"

const (
	rootElement    = "Project"
	conditionAttr  = "Condition"
	pathSeparator  = "/"
	groupProps     = "Project/PropertyGroup"
	groupItemDefs  = "Project/ItemDefinitionGroup"
	pathOutDir     = "Project/PropertyGroup/OutDir"
	pathIncludes   = "Project/ItemDefinitionGroup/ClCompile/AdditionalIncludeDirectories"
	pathDefinition = "Project/ItemDefinitionGroup/ClCompile/PreprocessorDefinitions"
)

type elementState int

const (
	stateIgnore elementState = iota
	stateUnconditionalGroup
	stateConditionalGroup
)

type field int

const (
	fieldNone field = iota
	fieldOutDir
	fieldIncludes
	fieldDefinitions
)

var groups = map[string]bool{
	groupProps:    true,
	groupItemDefs: true,
}

var captures = map[string]field{
	pathOutDir:     fieldOutDir,
	pathIncludes:   fieldIncludes,
	pathDefinition: fieldDefinitions,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Options carries what a project file alone cannot tell.
type Options struct {
	// SolutionPath is the solution the project was found through. When set,
	// its directory becomes the base directory; otherwise the project's own
	// directory is used.
	SolutionPath string

	// Overrides gives values for $(name) references beyond the built-ins
	Overrides map[string]string
}

type scanner struct {
	key string

	stack      []string
	state      elementState
	suppressed int

	capture field
	buf     strings.Builder
	raw     map[field]string
}

// Parse reads the project file named by stub.Path and returns a copy of stub
// with its base directory, output directory, include directories and
// definitions resolved for stub.Platform and stub.Configuration.
func Parse(stub model.ProjectDescriptor, opts Options) (model.ProjectDescriptor, error) {
	path, err := filepath.Abs(stub.Path)
	if err != nil {
		return model.ProjectDescriptor{}, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	baseDir := filepath.Dir(path)
	if opts.SolutionPath != "" {
		solutionPath, err := filepath.Abs(opts.SolutionPath)
		if err != nil {
			return model.ProjectDescriptor{}, fmt.Errorf("failed to resolve absolute path: %w", err)
		}

		baseDir = filepath.Dir(solutionPath)
	}

	f, err := os.Open(path)
	if err != nil {
		return model.ProjectDescriptor{}, codes.FromFileError(path, err)
	}
	defer f.Close()

	s := &scanner{
		key: model.ConfigPlatform(stub.Configuration, stub.Platform),
		raw: make(map[field]string),
	}

	if err := s.scan(path, f); err != nil {
		return model.ProjectDescriptor{}, err
	}

	sub := newSubstituter(baseDir, stub.Configuration, stub.Platform, opts.Overrides)

	d := stub
	d.Name = model.NameFromPath(path)
	d.Path = path
	d.BaseDir = baseDir
	d.OutputDir = s.outputDir(sub, path, baseDir, stub.Platform, stub.Configuration)
	d.IncludeDirs = sub.includeDirs(s.raw[fieldIncludes])
	d.Definitions = sub.definitions(s.raw[fieldDefinitions])

	return d, nil
}

// readRecorder remembers the first error of the underlying reader so a read
// failure is not mistaken for malformed markup.
type readRecorder struct {
	r   io.Reader
	err error
}

func (rr *readRecorder) Read(p []byte) (int, error) {
	n, err := rr.r.Read(p)
	if err != nil && err != io.EOF && rr.err == nil {
		rr.err = err
	}

	return n, err
}

func (s *scanner) scan(path string, r io.Reader) error {
	rr := &readRecorder{r: r}
	br := bufio.NewReader(rr)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	d := xml.NewDecoder(br)
	d.CharsetReader = charset.NewReaderLabel

	sawRoot := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return classify(path, rr.err, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !sawRoot {
				if t.Name.Local != rootElement {
					return fmt.Errorf("%w: %s: root element is <%s>, want <%s>", codes.ErrParse, path, t.Name.Local, rootElement)
				}
				sawRoot = true
			}
			s.start(t)
		case xml.EndElement:
			s.end()
		case xml.CharData:
			if s.capture != fieldNone {
				s.buf.Write(t)
			}
		}
	}

	if !sawRoot {
		return fmt.Errorf("%w: %s: no <%s> element", codes.ErrParse, path, rootElement)
	}

	return nil
}

func classify(path string, readErr, err error) error {
	if readErr != nil {
		return codes.FromFileError(path, readErr)
	}

	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &codes.SyntaxError{File: path, Line: syntaxErr.Line, Msg: syntaxErr.Msg}
	}

	return fmt.Errorf("%w: %s: %v", codes.ErrParse, path, err)
}

func (s *scanner) path() string {
	return strings.Join(s.stack, pathSeparator)
}

func (s *scanner) matches(cond string) bool {
	return strings.Contains(cond, s.key)
}

func (s *scanner) start(el xml.StartElement) {
	s.stack = append(s.stack, el.Name.Local)
	path := s.path()
	cond, hasCond := condition(el)

	if groups[path] {
		s.suppressed = 0
		switch {
		case !hasCond:
			s.state = stateUnconditionalGroup
		case s.matches(cond):
			s.state = stateConditionalGroup
		default:
			s.state = stateIgnore
		}
		return
	}

	if s.state == stateIgnore || s.suppressed > 0 {
		return
	}

	if s.state == stateUnconditionalGroup && hasCond && !s.matches(cond) {
		s.suppressed = len(s.stack)
		return
	}

	if f, ok := captures[path]; ok {
		s.capture = f
		s.buf.Reset()
	}
}

func (s *scanner) end() {
	if len(s.stack) == 0 {
		return
	}

	path := s.path()

	if s.capture != fieldNone && captures[path] == s.capture {
		// a later definition of the same property wins
		s.raw[s.capture] = s.buf.String()
		s.capture = fieldNone
	}

	if s.suppressed == len(s.stack) {
		s.suppressed = 0
	}

	if groups[path] {
		s.state = stateIgnore
	}

	s.stack = s.stack[:len(s.stack)-1]
}

func (s *scanner) outputDir(sub substituter, projectPath, baseDir, platform, configuration string) string {
	if raw, ok := s.raw[fieldOutDir]; ok {
		dir := strings.TrimSpace(sub.expand(raw))
		if dir != "" {
			dir = normalizePath(dir)
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(filepath.Dir(projectPath), dir)
			}

			return filepath.Clean(dir)
		}
	}

	if platform == "Win32" {
		return filepath.Join(baseDir, configuration)
	}

	return filepath.Join(baseDir, platform, configuration)
}

func condition(el xml.StartElement) (string, bool) {
	for _, attr := range el.Attr {
		if attr.Name.Local == conditionAttr {
			return attr.Value, true
		}
	}

	return "", false
}
