// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Pctasks lists the hooks of a pre-commit configuration as runnable tasks.

It looks for .pre-commit-config.yaml in each folder given with -dir (the
current directory by default). The first folder falls back to the
configuration at the root of its Git repository. Every distinct hook id
becomes a task; a "Run All" task runs every hook at once.

Outside a Git repository no tasks are created.

Usage:

	$ pctasks [flags]

Tasks are printed one per line as type, name and command separated by tabs,
or as JSON with -json:

	$ pctasks -variant current-file -file /src/app/main.go
	pre-commit-current-file	Run All	pre-commit run --files /src/app/main.go
	pre-commit-current-file	gofmt	pre-commit run gofmt --files /src/app/main.go

Without -file, current-file commands pass an empty file name.

Pass -resolve with a task name to print only the command of that task. A
task runs in the folder whose configuration declares it; with -json the
folder is printed too.

With -watch, the list is printed again every time a configuration file
changes, until interrupted.

Variants:

  - stage: run hooks on staged files.
  - current-file: run hooks on the file given with -file.
  - all-files: run hooks on every file in the repository.
  - all: the variants a development tool registers (stage and
    current-file).
*/
package main

import (
	_ "embed"

	"go.astrophena.name/pctasks/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
