// Package resolver is the entry point collaborators use to obtain project
// descriptors for a solution or project file.
//
// Results are memoized per (file, platform-configuration) for the lifetime of
// the Resolver. Inputs are assumed not to change while it is in use.
package resolver

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/Norgate-AV/vsmeta/internal/cache"
	"github.com/Norgate-AV/vsmeta/internal/codes"
	"github.com/Norgate-AV/vsmeta/internal/model"
	"github.com/Norgate-AV/vsmeta/internal/project"
	"github.com/Norgate-AV/vsmeta/internal/solution"
)

// Request names what a collaborator wants resolved.
//
// Exclude and Overrides are not part of the memoization key: within one
// Resolver the first request for a (file, platform, configuration) decides
// them.
type Request struct {
	File          string
	Platform      string
	Configuration string

	// Exclude drops solution projects whose declaration line matches
	Exclude *regexp.Regexp

	// Overrides supplies values for $(name) references
	Overrides map[string]string
}

// Store persists resolved descriptors between runs.
type Store interface {
	Get(q cache.Query) ([]model.ProjectDescriptor, error)
	Store(q cache.Query, projects []model.ProjectDescriptor) error
}

// Resolver memoizes parsed descriptors. It is safe for concurrent use; at
// most one parse runs per key at a time.
type Resolver struct {
	store Store

	mu sync.Mutex
	sf singleflight.Group
	m  map[string]map[string][]model.ProjectDescriptor

	// parse is replaced in tests to count parses
	parse func(file string, req Request) ([]model.ProjectDescriptor, error)
}

// Option configures a Resolver
type Option func(*Resolver)

// WithStore adds a persistent second tier behind the in-memory cache
func WithStore(s Store) Option {
	return func(r *Resolver) {
		r.store = s
	}
}

// New creates a resolver with an empty cache
func New(opts ...Option) *Resolver {
	r := &Resolver{
		m: make(map[string]map[string][]model.ProjectDescriptor),
	}
	r.parse = r.load

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve returns the fully resolved descriptors for req. A solution yields
// one descriptor per registered project, a project file yields exactly one.
//
// Every call returns its own copy; modifying it does not affect the cache.
func (r *Resolver) Resolve(req Request) ([]model.ProjectDescriptor, error) {
	if req.Platform == "" || req.Configuration == "" {
		return nil, fmt.Errorf("%w: platform and configuration are required", codes.ErrConfigurationNotFound)
	}

	file, err := identity(req.File)
	if err != nil {
		return nil, err
	}

	key := model.Key(req.Platform, req.Configuration)
	if projects, ok := r.lookup(file, key); ok {
		log.Debugf("resolver hit %s [%s]: %d projects", file, key, len(projects))
		return clone(projects), nil
	}

	v, err, shared := r.sf.Do(file+"\x00"+key, func() (any, error) {
		if projects, ok := r.lookup(file, key); ok {
			return projects, nil
		}

		projects, err := r.parse(file, req)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		byKey, ok := r.m[file]
		if !ok {
			byKey = make(map[string][]model.ProjectDescriptor)
			r.m[file] = byKey
		}
		byKey[key] = projects
		r.mu.Unlock()

		log.Debugf("resolver set %s [%s]: %d projects", file, key, len(projects))
		return projects, nil
	})
	if err != nil {
		return nil, err
	}

	if shared {
		log.Debugf("resolver shared %s [%s]", file, key)
	}

	return clone(v.([]model.ProjectDescriptor)), nil
}

func clone(projects []model.ProjectDescriptor) []model.ProjectDescriptor {
	out := make([]model.ProjectDescriptor, len(projects))
	for i, p := range projects {
		out[i] = p.Clone()
	}

	return out
}

func (r *Resolver) lookup(file, key string) ([]model.ProjectDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, ok := r.m[file][key]
	return projects, ok
}

// load consults the persistent store, then parses on a miss
func (r *Resolver) load(file string, req Request) ([]model.ProjectDescriptor, error) {
	q := query(file, req)

	if r.store != nil {
		projects, err := r.store.Get(q)
		if err != nil {
			log.Warnf("failed to read descriptor cache for %s: %v", file, err)
		} else if projects != nil {
			log.Debugf("descriptor cache hit %s", file)
			return projects, nil
		}
	}

	projects, err := parseFile(file, req)
	if err != nil {
		return nil, err
	}

	if r.store != nil {
		if err := r.store.Store(q, projects); err != nil {
			log.Warnf("failed to store descriptors for %s: %v", file, err)
		}
	}

	return projects, nil
}

func parseFile(file string, req Request) ([]model.ProjectDescriptor, error) {
	if !IsSolution(file) {
		stub := model.NewStub(file, filepath.Dir(file), req.Platform, req.Configuration)

		d, err := project.Parse(stub, project.Options{Overrides: req.Overrides})
		if err != nil {
			return nil, err
		}

		return []model.ProjectDescriptor{d}, nil
	}

	stubs, err := solution.Parse(file, req.Platform, req.Configuration, solution.Options{Exclude: req.Exclude})
	if err != nil {
		return nil, err
	}

	projects := make([]model.ProjectDescriptor, 0, len(stubs))
	for _, stub := range stubs {
		d, err := project.Parse(stub, project.Options{
			SolutionPath: file,
			Overrides:    req.Overrides,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to parse project %s: %w", stub.Name, err)
		}

		projects = append(projects, d)
	}

	return projects, nil
}

func query(file string, req Request) cache.Query {
	q := cache.Query{
		File:          file,
		Platform:      req.Platform,
		Configuration: req.Configuration,
		Overrides:     req.Overrides,
	}

	if req.Exclude != nil {
		q.Exclude = req.Exclude.String()
	}

	return q
}

// IsSolution reports whether path names a solution file
func IsSolution(path string) bool {
	return strings.EqualFold(filepath.Ext(path), solution.Extension)
}

// identity returns the canonical absolute path used as the cache key
func identity(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}

	return abs, nil
}
