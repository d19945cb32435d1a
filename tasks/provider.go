// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tasks

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"go.astrophena.name/pctasks/logger"
	"go.astrophena.name/pctasks/precommit"
	"go.astrophena.name/pctasks/syncx"
)

// Source is the source label of every runnable task.
const Source = "pre-commit"

// Group is the task group runnable tasks belong to.
const Group = "test"

var (
	// ErrForeignTask is returned by [Provider.Resolve] for descriptors of
	// another variant.
	ErrForeignTask = errors.New("task belongs to another provider")
	// ErrInvalidTask is returned by [Provider.Resolve] for descriptors that
	// can't name a hook.
	ErrInvalidTask = errors.New("invalid task")
)

// Workspace reports the folders open in the host.
type Workspace interface {
	Folders() []Folder
}

// Runnable is a task ready to be executed by the host: a shell command
// run in a folder.
type Runnable struct {
	Definition     Descriptor `json:"definition"`
	Label          string     `json:"label"`
	Source         string     `json:"source"`
	Group          string     `json:"group"`
	Command        string     `json:"command"`
	Folder         Folder     `json:"folder"`
	ProblemMatcher string     `json:"problemMatcher,omitempty"`
}

// Options configure a [Provider].
type Options struct {
	// Variant builds the commands. Required.
	Variant Variant
	// Workspace lists open folders. Required.
	Workspace Workspace
	// GitRoot is the root of the Git repository containing the primary
	// folder. If empty, the primary folder has no fallback configuration.
	GitRoot string
	// Logger receives progress. Defaults to the context logger.
	Logger *logger.Logger
}

// Provider lists and resolves the tasks of one [Variant]. The list is
// cached until [Provider.Invalidate] is called.
type Provider struct {
	opts  Options
	cache syncx.Cache[[]Descriptor]
}

// NewProvider returns a new Provider.
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts}
}

// Type returns the type of the provider's variant.
func (p *Provider) Type() string { return p.opts.Variant.Type }

// List returns the current tasks. Without open folders it returns an empty
// list and leaves the cache alone. Repeated calls return the same slice
// until the cache is invalidated; callers must not modify it.
func (p *Provider) List(ctx context.Context) ([]Descriptor, error) {
	folders := p.opts.Workspace.Folders()
	if len(folders) == 0 {
		return []Descriptor{}, nil
	}
	return p.cache.Get(ctx, func(ctx context.Context) ([]Descriptor, error) {
		// Folders are read again: the workspace may have changed while
		// waiting for the cache.
		return Derive(ctx, p.opts.Workspace.Folders(), p.opts.GitRoot, p.opts.Variant, p.logger(ctx))
	})
}

// Invalidate drops the cached task list.
func (p *Provider) Invalidate() {
	p.logger(context.Background()).Debug("task list invalidated", "type", p.Type())
	p.cache.Invalidate()
}

// CacheState returns the state of the task list cache.
func (p *Provider) CacheState() syncx.CacheState { return p.cache.State() }

// Resolve turns d into a runnable task, building its command for
// activeFile. d may come from [Provider.List] or be reconstructed by the
// host; the hook it names isn't checked against the configuration. A
// descriptor without a folder runs in the primary folder. Only hook tasks
// carry the variant's problem matcher.
func (p *Provider) Resolve(ctx context.Context, d Descriptor, activeFile string) (*Runnable, error) {
	v := p.opts.Variant
	if d.Type != v.Type {
		return nil, fmt.Errorf("%w: %q is not %q", ErrForeignTask, d.Type, v.Type)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidTask)
	}

	folder := d.Folder
	if folder.Path == "" {
		folders := p.opts.Workspace.Folders()
		if len(folders) == 0 {
			return nil, fmt.Errorf("%w: %q has no folder to run in", ErrInvalidTask, d.Name)
		}
		folder = folders[0]
	}

	s := Scope{Folder: folder, ActiveFile: activeFile}
	var command, matcher string
	if d.Name == RunAllName {
		command = v.RunAllCommand(s)
	} else {
		command = v.HookCommand(d.Name, s)
		matcher = v.ProblemMatcher
	}
	p.logger(ctx).Debug("task resolved", "type", d.Type, "name", d.Name, "command", command)

	def := d
	def.Folder = folder
	return &Runnable{
		Definition:     def,
		Label:          d.Name,
		Source:         Source,
		Group:          Group,
		Command:        command,
		Folder:         folder,
		ProblemMatcher: matcher,
	}, nil
}

// ConfigPaths returns every configuration file whose creation, change or
// removal affects the task list.
func (p *Provider) ConfigPaths() []string {
	var paths []string
	for _, f := range p.opts.Workspace.Folders() {
		paths = append(paths, filepath.Join(f.Path, precommit.ConfigFileName))
	}
	if p.opts.GitRoot != "" {
		root := filepath.Join(p.opts.GitRoot, precommit.ConfigFileName)
		if !slices.Contains(paths, root) {
			paths = append(paths, root)
		}
	}
	return paths
}

func (p *Provider) logger(ctx context.Context) *logger.Logger {
	if p.opts.Logger != nil {
		return p.opts.Logger
	}
	return logger.Get(ctx)
}
