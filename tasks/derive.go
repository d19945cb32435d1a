// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package tasks turns pre-commit hooks into task descriptors that a
// development tool can list and run.
//
// [Derive] reads the configuration of every open folder and returns one
// [Descriptor] per distinct hook id, preceded by a single "Run All" task.
// [Provider] caches that list until the configuration changes and turns
// descriptors into [Runnable] tasks on demand.
package tasks

import (
	"context"
	"fmt"
	"path/filepath"

	"go.astrophena.name/pctasks/logger"
	"go.astrophena.name/pctasks/precommit"
)

// RunAllName is the name of the task running every hook.
const RunAllName = "Run All"

// Folder is a folder open in the host. The first folder of a list is the
// primary one.
type Folder struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Descriptor is a task that can be listed before it is resolved into a
// [Runnable].
type Descriptor struct {
	// Type is the type of the variant that produced the descriptor.
	Type string `json:"type"`
	// Name is a hook id or RunAllName.
	Name string `json:"name"`
	// Command is the shell command, built without an active file.
	Command string `json:"command"`
	// Folder is the folder the task runs in.
	Folder Folder `json:"folder"`
}

// ConfigPath returns the configuration file path used for the folder at
// index i, or "" if it has none.
//
// A folder's own configuration file wins. The primary folder (i == 0)
// falls back to the configuration at the Git repository root.
func ConfigPath(folders []Folder, i int, gitRoot string) (string, error) {
	local := filepath.Join(folders[i].Path, precommit.ConfigFileName)
	ok, err := precommit.Exists(local)
	if err != nil {
		return "", err
	}
	if ok {
		return local, nil
	}
	if i != 0 || gitRoot == "" {
		return "", nil
	}
	root := filepath.Join(gitRoot, precommit.ConfigFileName)
	if ok, err = precommit.Exists(root); err != nil || !ok {
		return "", err
	}
	return root, nil
}

// Derive returns the tasks of variant v for folders.
//
// The result starts with a RunAllName task for the primary folder and
// continues with one task per hook id, in the order hooks appear across
// folders, repos and hooks. A hook id seen before in the same call is
// skipped. Folders without configuration contribute no hooks.
//
// An unreadable or malformed configuration fails the whole call; no
// partial result is returned. With no folders, Derive returns an empty
// slice.
func Derive(ctx context.Context, folders []Folder, gitRoot string, v Variant, log *logger.Logger) ([]Descriptor, error) {
	if log == nil {
		log = logger.Get(ctx)
	}
	result := []Descriptor{}
	if len(folders) == 0 {
		return result, nil
	}

	primary := folders[0]
	result = append(result, Descriptor{
		Type:    v.Type,
		Name:    RunAllName,
		Command: v.RunAllCommand(Scope{Folder: primary}),
		Folder:  primary,
	})

	seen := map[string]bool{RunAllName: true}
	for i, folder := range folders {
		path, err := ConfigPath(folders, i, gitRoot)
		if err != nil {
			return nil, fmt.Errorf("folder %q: %w", folder.Name, err)
		}
		if path == "" {
			log.Debug("no pre-commit configuration", "folder", folder.Path)
			continue
		}

		cfg, err := precommit.Load(path)
		if err != nil {
			return nil, fmt.Errorf("folder %q: %w", folder.Name, err)
		}
		log.Debug("config parsed", "path", path, "repos", len(cfg.Repos), "hooks", cfg.HookCount())

		for _, repo := range cfg.Repos {
			log.Debug("repo found", "repo", repo.URL, "hooks", len(repo.Hooks))
			for _, hook := range repo.Hooks {
				// The runner selects hooks by id, so hooks sharing an id
				// all run as part of the first task anyway.
				if seen[hook.ID] {
					log.Debug("duplicate hook skipped", "id", hook.ID, "repo", repo.URL)
					continue
				}
				seen[hook.ID] = true
				result = append(result, Descriptor{
					Type:    v.Type,
					Name:    hook.ID,
					Command: v.HookCommand(hook.ID, Scope{Folder: folder}),
					Folder:  folder,
				})
			}
		}
	}
	return result, nil
}
