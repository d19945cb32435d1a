// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package host

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.astrophena.name/pctasks/logger"
	"go.astrophena.name/pctasks/precommit"
	"go.astrophena.name/pctasks/syncx"
	"go.astrophena.name/pctasks/tasks"
	"go.astrophena.name/pctasks/testutil"
)

type fakeLocator struct {
	root  string
	calls []string
}

func (l *fakeLocator) FindRoot(ctx context.Context, dir string) (string, bool) {
	l.calls = append(l.calls, dir)
	return l.root, l.root != ""
}

func TestActivate(t *testing.T) {
	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, precommit.ConfigFileName), "repos:\n- repo: A\n  hooks: [{id: lint}]\n")
	folder := tasks.Folder{Name: "app", Path: filepath.Join(root, "app")}
	testutil.WriteFile(t, filepath.Join(folder.Path, "main.go"), "package main\n")

	reg := NewRegistry(folder)
	loc := &fakeLocator{root: root}
	ext, err := Activate(context.Background(), reg, Options{Locator: loc, Logger: logger.Discard(), NoWatch: true})
	if err != nil {
		t.Fatalf("Activate(): %v", err)
	}

	testutil.AssertEqual(t, loc.calls, []string{folder.Path})
	testutil.AssertEqual(t, ext.GitRoot, root)
	testutil.AssertEqual(t, len(ext.Providers), 2)
	testutil.AssertEqual(t, reg.Types(), []string{tasks.CurrentFileType, tasks.StageType})
	testutil.AssertEqual(t, len(reg.Notices()), 0)

	all, err := reg.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks(): %v", err)
	}
	var got []string
	for _, d := range all {
		got = append(got, d.Type+"/"+d.Name+": "+d.Command)
	}
	testutil.AssertEqual(t, got, []string{
		"pre-commit-current-file/Run All: pre-commit run --files ''",
		"pre-commit-current-file/lint: pre-commit run lint --files ''",
		"pre-commit-stage/Run All: pre-commit run",
		"pre-commit-stage/lint: pre-commit run lint",
	})

	reg.SetActiveFile(filepath.Join(folder.Path, "main.go"))
	r, err := reg.ResolveTask(context.Background(), tasks.CurrentFileType, "lint")
	if err != nil {
		t.Fatalf("ResolveTask(): %v", err)
	}
	testutil.AssertEqual(t, r.Command, "pre-commit run lint --files "+filepath.Join(folder.Path, "main.go"))
	testutil.AssertEqual(t, r.Folder, folder)

	testutil.AssertEqual(t, ext.Deactivate(), nil)
	testutil.AssertEqual(t, len(reg.Types()), 0)
	if _, err := reg.ResolveTask(context.Background(), tasks.StageType, "lint"); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("want ErrNoProvider, got %v", err)
	}
}

func TestActivateOutsideRepository(t *testing.T) {
	reg := NewRegistry(tasks.Folder{Name: "tmp", Path: t.TempDir()})
	ext, err := Activate(context.Background(), reg, Options{Locator: &fakeLocator{}, Logger: logger.Discard()})
	testutil.AssertEqual(t, err, nil)
	if ext != nil {
		t.Fatal("want no extension outside a repository")
	}
	testutil.AssertEqual(t, reg.Notices(), []string{NotInRepoMessage})
	testutil.AssertEqual(t, len(reg.Types()), 0)
	testutil.AssertEqual(t, ext.Deactivate(), nil)
}

func TestActivateWithoutFolders(t *testing.T) {
	reg := NewRegistry()
	loc := &fakeLocator{root: "/repo"}
	ext, err := Activate(context.Background(), reg, Options{Locator: loc, Logger: logger.Discard()})
	testutil.AssertEqual(t, err, nil)
	if ext != nil {
		t.Fatal("want no extension without folders")
	}
	testutil.AssertEqual(t, len(loc.calls), 0)
	testutil.AssertEqual(t, len(reg.Notices()), 0)
}

func TestActivateWatchesConfiguration(t *testing.T) {
	root := t.TempDir()
	config := filepath.Join(root, precommit.ConfigFileName)
	testutil.WriteFile(t, config, "repos:\n- repo: A\n  hooks: [{id: lint}]\n")

	reg := NewRegistry(tasks.Folder{Name: "root", Path: root})
	changed := make(chan string, 16)
	ext, err := Activate(context.Background(), reg, Options{
		Locator:  &fakeLocator{root: root},
		Variants: []tasks.Variant{tasks.Stage},
		Logger:   logger.Discard(),
		OnChange: func(path string) {
			select {
			case changed <- path:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("Activate(): %v", err)
	}
	t.Cleanup(func() { ext.Deactivate() })

	p := ext.Providers[0]
	if _, err := p.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, p.CacheState(), syncx.StateReady)

	testutil.WriteFile(t, config, "repos:\n- repo: A\n  hooks: [{id: lint}, {id: vet}]\n")

	deadline := time.Now().Add(5 * time.Second)
	for p.CacheState() != syncx.StateEmpty {
		if time.Now().After(deadline) {
			t.Fatal("cache was not invalidated after the configuration changed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Wait until the write has fully settled before listing again.
	var got []tasks.Descriptor
	for {
		got, err = p.List(context.Background())
		if err == nil && len(got) == 3 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("List() = %v, %v; want three tasks", got, err)
		}
		p.Invalidate()
		time.Sleep(10 * time.Millisecond)
	}
	testutil.AssertEqual(t, got[2].Name, "vet")

	select {
	case path := <-changed:
		testutil.AssertEqual(t, path, config)
	case <-time.After(5 * time.Second):
		t.Fatal("OnChange was not called")
	}
}

func TestRegistry(t *testing.T) {
	a := tasks.Folder{Name: "a", Path: "/a"}
	reg := NewRegistry(a)

	folders := reg.Folders()
	folders[0].Name = "changed"
	testutil.AssertEqual(t, reg.Folders(), []tasks.Folder{a})

	reg.SetFolders()
	testutil.AssertEqual(t, len(reg.Folders()), 0)

	p1 := tasks.NewProvider(tasks.Options{Variant: tasks.Stage, Workspace: reg})
	p2 := tasks.NewProvider(tasks.Options{Variant: tasks.Stage, Workspace: reg})
	unregister1 := reg.RegisterTaskProvider(tasks.StageType, p1)
	unregister2 := reg.RegisterTaskProvider(tasks.StageType, p2)

	// Unregistering a replaced provider leaves the replacement alone.
	unregister1()
	testutil.AssertEqual(t, reg.Types(), []string{tasks.StageType})

	// Without folders there is nothing to list.
	all, err := reg.Tasks(context.Background())
	testutil.AssertEqual(t, err, nil)
	testutil.AssertEqual(t, len(all), 0)

	unregister2()
	testutil.AssertEqual(t, len(reg.Types()), 0)
}

func TestRegistryResolveKeepsFolder(t *testing.T) {
	a := tasks.Folder{Name: "a", Path: filepath.Join(t.TempDir(), "a")}
	b := tasks.Folder{Name: "b", Path: filepath.Join(t.TempDir(), "b")}
	testutil.WriteFile(t, filepath.Join(a.Path, precommit.ConfigFileName), "repos:\n- repo: A\n  hooks: [{id: lint}]\n")
	testutil.WriteFile(t, filepath.Join(b.Path, precommit.ConfigFileName), "repos:\n- repo: B\n  hooks: [{id: only-in-b}]\n")

	reg := NewRegistry(a, b)
	reg.RegisterTaskProvider(tasks.StageType, tasks.NewProvider(tasks.Options{
		Variant:   tasks.Stage,
		Workspace: reg,
		Logger:    logger.Discard(),
	}))

	cases := map[string]struct {
		name string
		want tasks.Folder
	}{
		"primary folder hook":   {name: "lint", want: a},
		"secondary folder hook": {name: "only-in-b", want: b},
		"run all":               {name: tasks.RunAllName, want: a},
		"not listed":            {name: "not-configured", want: a},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := reg.ResolveTask(context.Background(), tasks.StageType, tc.name)
			if err != nil {
				t.Fatalf("ResolveTask(): %v", err)
			}
			testutil.AssertEqual(t, r.Folder, tc.want)
			testutil.AssertEqual(t, r.Definition.Folder, tc.want)
		})
	}

	// Listed descriptors resolve to the same folder.
	all, err := reg.Tasks(context.Background())
	if err != nil {
		t.Fatalf("Tasks(): %v", err)
	}
	for _, d := range all {
		r, err := reg.Resolve(context.Background(), d)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", d.Name, err)
		}
		testutil.AssertEqual(t, r.Folder, d.Folder)
	}

	if _, err := reg.Resolve(context.Background(), tasks.Descriptor{Type: "nope", Name: "lint"}); !errors.Is(err, ErrNoProvider) {
		t.Fatalf("want ErrNoProvider, got %v", err)
	}
}

func TestSetFoldersAfterActivate(t *testing.T) {
	root := t.TempDir()
	a := tasks.Folder{Name: "a", Path: filepath.Join(root, "a")}
	b := tasks.Folder{Name: "b", Path: filepath.Join(root, "b")}
	testutil.WriteFile(t, filepath.Join(a.Path, precommit.ConfigFileName), "repos:\n- repo: A\n  hooks: [{id: lint}]\n")
	testutil.WriteFile(t, filepath.Join(b.Path, precommit.ConfigFileName), "repos:\n- repo: B\n  hooks: [{id: vet}]\n")

	reg := NewRegistry(a)
	ext, err := Activate(context.Background(), reg, Options{
		Locator:  &fakeLocator{root: root},
		Variants: []tasks.Variant{tasks.Stage},
		Logger:   logger.Discard(),
		NoWatch:  true,
	})
	if err != nil {
		t.Fatalf("Activate(): %v", err)
	}
	defer ext.Deactivate()

	list := func() []string {
		t.Helper()
		all, err := reg.Tasks(context.Background())
		if err != nil {
			t.Fatalf("Tasks(): %v", err)
		}
		var names []string
		for _, d := range all {
			names = append(names, d.Name)
		}
		return names
	}

	testutil.AssertEqual(t, list(), []string{tasks.RunAllName, "lint"})

	// A new folder shows up once the cached list is dropped.
	reg.SetFolders(a, b)
	testutil.AssertEqual(t, list(), []string{tasks.RunAllName, "lint"})
	ext.Invalidate()
	testutil.AssertEqual(t, list(), []string{tasks.RunAllName, "lint", "vet"})
}
