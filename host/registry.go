// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package host

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.astrophena.name/pctasks/syncx"
	"go.astrophena.name/pctasks/tasks"
)

// ErrNoProvider is returned by [Registry.ResolveTask] for unknown types.
var ErrNoProvider = errors.New("no task provider")

// Registry is a [Host] keeping folders, the active file and providers in
// memory.
type Registry struct {
	providers syncx.Map[string, TaskProvider]

	mu         sync.Mutex
	folders    []tasks.Folder
	activeFile string
	notices    []string
}

// NewRegistry returns a Registry with folders open.
func NewRegistry(folders ...tasks.Folder) *Registry {
	return &Registry{folders: folders}
}

// Folders implements [Host].
func (r *Registry) Folders() []tasks.Folder {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.folders)
}

// SetFolders replaces the open folders. Providers see the new folders the
// next time their cache is computed, but configuration files are only
// watched for the folders open at [Activate]; activate again to watch
// added folders.
func (r *Registry) SetFolders(folders ...tasks.Folder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.folders = folders
}

// ActiveFile implements [Host].
func (r *Registry) ActiveFile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeFile
}

// SetActiveFile sets the file returned by [Registry.ActiveFile].
func (r *Registry) SetActiveFile(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activeFile = path
}

// ShowInfo implements [Host] by recording msg.
func (r *Registry) ShowInfo(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, msg)
}

// Notices returns the messages passed to [Registry.ShowInfo].
func (r *Registry) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notices)
}

// RegisterTaskProvider implements [Host]. A later registration of the same
// type replaces the earlier one.
func (r *Registry) RegisterTaskProvider(typ string, p TaskProvider) func() {
	r.providers.Store(typ, p)
	return func() {
		if cur, ok := r.providers.Load(typ); ok && cur == p {
			r.providers.Delete(typ)
		}
	}
}

// Types returns the registered provider types in sorted order.
func (r *Registry) Types() []string {
	var types []string
	r.providers.Range(func(typ string, _ TaskProvider) bool {
		types = append(types, typ)
		return true
	})
	slices.Sort(types)
	return types
}

// Tasks lists the tasks of every provider, ordered by provider type. A
// failing provider fails the whole call.
func (r *Registry) Tasks(ctx context.Context) ([]tasks.Descriptor, error) {
	var all []tasks.Descriptor
	for _, typ := range r.Types() {
		p, ok := r.providers.Load(typ)
		if !ok {
			continue
		}
		ds, err := p.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", typ, err)
		}
		all = append(all, ds...)
	}
	return all, nil
}

// ResolveTask resolves the task name of type typ for the current active
// file. A listed task keeps its folder; a name that isn't listed is
// resolved as a reconstructed descriptor in the primary folder.
func (r *Registry) ResolveTask(ctx context.Context, typ, name string) (*tasks.Runnable, error) {
	p, err := r.provider(typ)
	if err != nil {
		return nil, err
	}
	ds, err := p.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", typ, err)
	}
	d := tasks.Descriptor{Type: typ, Name: name}
	if i := slices.IndexFunc(ds, func(d tasks.Descriptor) bool { return d.Name == name }); i >= 0 {
		d = ds[i]
	}
	return p.Resolve(ctx, d, r.ActiveFile())
}

// Resolve resolves d, as returned by [Registry.Tasks], for the current
// active file.
func (r *Registry) Resolve(ctx context.Context, d tasks.Descriptor) (*tasks.Runnable, error) {
	p, err := r.provider(d.Type)
	if err != nil {
		return nil, err
	}
	return p.Resolve(ctx, d, r.ActiveFile())
}

func (r *Registry) provider(typ string) (TaskProvider, error) {
	p, ok := r.providers.Load(typ)
	if !ok {
		return nil, fmt.Errorf("%w for %q (have %s)", ErrNoProvider, typ, strings.Join(r.Types(), ", "))
	}
	return p, nil
}
