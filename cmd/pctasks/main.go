// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.astrophena.name/pctasks/cli"
	"go.astrophena.name/pctasks/gitroot"
	"go.astrophena.name/pctasks/host"
	"go.astrophena.name/pctasks/logger"
	"go.astrophena.name/pctasks/tasks"
)

func main() { cli.Main(new(app)) }

// settle is how long watch mode waits for more events after a change.
const settle = 200 * time.Millisecond

type app struct {
	dirs    []string
	file    string
	variant string
	json    bool
	resolve string
	watch   bool
	verbose bool
	git     string

	// changed receives configuration changes in watch mode; set by tests.
	changed chan string
}

func (a *app) Flags(fs *flag.FlagSet) {
	fs.Func("dir", "Open `folder` (repeatable). The first one is primary. Defaults to the current directory.", func(s string) error {
		a.dirs = append(a.dirs, s)
		return nil
	})
	fs.StringVar(&a.file, "file", "", "Active `file` for the current-file variant.")
	fs.StringVar(&a.variant, "variant", "all", "Task `variant`: stage, current-file, all-files or all.")
	fs.BoolVar(&a.json, "json", false, "Print JSON.")
	fs.StringVar(&a.resolve, "resolve", "", "Print the command of the task `name` instead of listing tasks.")
	fs.BoolVar(&a.watch, "watch", false, "Print the task list again when a configuration file changes.")
	fs.BoolVar(&a.verbose, "v", false, "Log debug messages.")
	fs.StringVar(&a.git, "git", "git", "Git `executable`.")
}

func (a *app) Run(ctx context.Context) error {
	env := cli.GetEnv(ctx)
	if len(env.Args) > 0 {
		return fmt.Errorf("%w: unexpected arguments %q", cli.ErrInvalidArgs, env.Args)
	}

	level := new(slog.LevelVar)
	if a.verbose {
		level.Set(slog.LevelDebug)
	}
	color := env.StderrIsTerminal() && env.Lookup("NO_COLOR") == ""
	log := logger.NewTerminal(env.Stderr, color, level)
	ctx = logger.Put(ctx, log)

	folders, err := a.folders()
	if err != nil {
		return err
	}
	variants, err := a.variants()
	if err != nil {
		return err
	}

	reg := host.NewRegistry(folders...)
	if a.file != "" {
		file, err := filepath.Abs(a.file)
		if err != nil {
			return err
		}
		reg.SetActiveFile(file)
	}

	if a.watch && a.changed == nil {
		a.changed = make(chan string, 1)
	}
	ext, err := host.Activate(ctx, reg, host.Options{
		Locator:  &gitroot.Locator{Command: a.git, Logger: log},
		Variants: variants,
		Logger:   log,
		NoWatch:  !a.watch,
		OnChange: a.notify,
	})
	if err != nil {
		return err
	}
	defer ext.Deactivate()

	if a.resolve != "" {
		return a.printResolved(ctx, env.Stdout, reg)
	}
	if err := a.printTasks(ctx, env.Stdout, reg); err != nil {
		return err
	}
	if !a.watch || ext == nil {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-a.changed:
			a.drain(ctx)
			log.Info("configuration changed", "path", path)
			if err := a.printTasks(ctx, env.Stdout, reg); err != nil {
				// Keep watching: the next change may fix the file.
				log.Error("listing tasks failed", "err", err)
			}
		}
	}
}

func (a *app) notify(path string) {
	select {
	case a.changed <- path:
	default:
	}
}

// drain swallows changes arriving shortly after one another, such as the
// truncate and write of a single save.
func (a *app) drain(ctx context.Context) {
	t := time.NewTimer(settle)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.changed:
			t.Reset(settle)
		case <-t.C:
			return
		}
	}
}

func (a *app) folders() ([]tasks.Folder, error) {
	dirs := a.dirs
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	var folders []tasks.Folder
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		fi, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cli.ErrInvalidArgs, err)
		}
		if !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s is not a directory", cli.ErrInvalidArgs, dir)
		}
		folders = append(folders, tasks.Folder{Name: filepath.Base(abs), Path: abs})
	}
	return folders, nil
}

func (a *app) variants() ([]tasks.Variant, error) {
	if a.variant == "all" {
		return nil, nil
	}
	known := tasks.Variants()
	v, ok := known[a.variant]
	if !ok {
		names := []string{"all"}
		for name := range known {
			names = append(names, name)
		}
		slices.Sort(names)
		return nil, fmt.Errorf("%w: unknown variant %q (want one of %s)", cli.ErrInvalidArgs, a.variant, strings.Join(names, ", "))
	}
	return []tasks.Variant{v}, nil
}

func (a *app) printTasks(ctx context.Context, w io.Writer, reg *host.Registry) error {
	ds, err := reg.Tasks(ctx)
	if err != nil {
		return err
	}
	// Listed commands are built without the active file.
	for i, d := range ds {
		r, err := reg.Resolve(ctx, d)
		if err != nil {
			return err
		}
		ds[i].Command = r.Command
	}
	if a.json {
		if ds == nil {
			ds = []tasks.Descriptor{}
		}
		return writeJSON(w, ds)
	}
	for _, d := range ds {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Type, d.Name, d.Command)
	}
	return nil
}

func (a *app) printResolved(ctx context.Context, w io.Writer, reg *host.Registry) error {
	rs := []*tasks.Runnable{}
	for _, typ := range reg.Types() {
		r, err := reg.ResolveTask(ctx, typ, a.resolve)
		if err != nil {
			return err
		}
		rs = append(rs, r)
	}
	if a.json {
		return writeJSON(w, rs)
	}
	for _, r := range rs {
		fmt.Fprintf(w, "%s\t%s\n", r.Definition.Type, r.Command)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
