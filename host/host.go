// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package host connects task providers to a development tool.
//
// [Activate] finds the Git repository of the primary folder and registers
// one provider per built-in variant with a [Host]. [Registry] is a Host
// that keeps everything in memory; the pctasks command uses it.
package host

import (
	"context"
	"errors"

	"go.astrophena.name/pctasks/gitroot"
	"go.astrophena.name/pctasks/logger"
	"go.astrophena.name/pctasks/tasks"
	"go.astrophena.name/pctasks/watch"
)

// NotInRepoMessage is shown when activation finds no Git repository.
const NotInRepoMessage = "Not inside a Git repo - pre-commit tasks won't be created."

// TaskProvider lists and resolves tasks of one type.
type TaskProvider interface {
	List(ctx context.Context) ([]tasks.Descriptor, error)
	Resolve(ctx context.Context, d tasks.Descriptor, activeFile string) (*tasks.Runnable, error)
}

// Host is a development tool able to run tasks.
type Host interface {
	tasks.Workspace
	// ActiveFile returns the file the user is looking at, or "".
	ActiveFile() string
	// ShowInfo shows an informational message to the user.
	ShowInfo(msg string)
	// RegisterTaskProvider makes p available for tasks of type typ and
	// returns a function that removes it again.
	RegisterTaskProvider(typ string, p TaskProvider) (unregister func())
}

// Locator finds Git repository roots. [*gitroot.Locator] implements it.
type Locator interface {
	FindRoot(ctx context.Context, dir string) (string, bool)
}

var _ Locator = (*gitroot.Locator)(nil)

// Options configure [Activate].
type Options struct {
	// Locator finds the Git root. Defaults to a [gitroot.Locator] running
	// "git".
	Locator Locator
	// Variants are registered in order. Defaults to tasks.Stage and
	// tasks.CurrentFile.
	Variants []tasks.Variant
	// Logger receives progress and is passed to providers. Defaults to the
	// context logger.
	Logger *logger.Logger
	// NoWatch disables file watching; providers then only refresh when
	// invalidated by hand.
	NoWatch bool
	// OnChange, if set, is called after a watched configuration file
	// changed and the providers were invalidated. It is called from the
	// watcher goroutine and must not block.
	OnChange func(path string)
}

// Extension is an activated set of providers.
type Extension struct {
	// GitRoot is the root of the repository containing the primary folder.
	GitRoot string
	// Providers holds the registered providers in registration order.
	Providers []*tasks.Provider

	watcher    *watch.Watcher
	unregister []func()
}

// Activate registers task providers with h.
//
// If the primary folder isn't inside a Git repository, Activate shows
// [NotInRepoMessage] and returns a nil Extension and a nil error. Without
// any open folder it returns nil, nil silently.
func Activate(ctx context.Context, h Host, opts Options) (*Extension, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Get(ctx)
	}
	folders := h.Folders()
	if len(folders) == 0 {
		log.Info("no folder open, pre-commit tasks won't be created")
		return nil, nil
	}

	loc := opts.Locator
	if loc == nil {
		loc = &gitroot.Locator{Logger: log}
	}
	root, ok := loc.FindRoot(ctx, folders[0].Path)
	if !ok {
		log.Info(NotInRepoMessage)
		h.ShowInfo(NotInRepoMessage)
		return nil, nil
	}

	variants := opts.Variants
	if len(variants) == 0 {
		variants = []tasks.Variant{tasks.Stage, tasks.CurrentFile}
	}

	ext := &Extension{GitRoot: root}
	if !opts.NoWatch {
		w, err := watch.New(log)
		if err != nil {
			return nil, err
		}
		ext.watcher = w
	}

	for _, v := range variants {
		p := tasks.NewProvider(tasks.Options{
			Variant:   v,
			Workspace: h,
			GitRoot:   root,
			Logger:    log,
		})
		if ext.watcher != nil {
			for _, path := range p.ConfigPaths() {
				invalidate := func() {
					p.Invalidate()
					if opts.OnChange != nil {
						opts.OnChange(path)
					}
				}
				if err := ext.watcher.Watch(path, invalidate); err != nil {
					// A folder that vanished can't have a configuration
					// either; keep the rest working.
					log.Warn("can't watch configuration", "path", path, "err", err)
				}
			}
		}
		ext.Providers = append(ext.Providers, p)
		ext.unregister = append(ext.unregister, h.RegisterTaskProvider(v.Type, p))
		log.Debug("task provider registered", "type", v.Type, "git_root", root)
	}
	return ext, nil
}

// Invalidate drops the cached task lists of all providers.
func (e *Extension) Invalidate() {
	for _, p := range e.Providers {
		p.Invalidate()
	}
}

// Deactivate unregisters the providers and stops watching files. It is
// safe to call on a nil Extension.
func (e *Extension) Deactivate() error {
	if e == nil {
		return nil
	}
	for _, unregister := range e.unregister {
		unregister()
	}
	e.unregister = nil
	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
		e.watcher = nil
	}
	return errors.Join(errs...)
}
