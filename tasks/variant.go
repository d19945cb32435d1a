// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package tasks

import "github.com/kballard/go-shellquote"

// Runner is the hook runner executable used by the built-in variants.
const Runner = "pre-commit"

// ProblemMatcher is the name of the output matcher attached to hook tasks.
const ProblemMatcher = "$pcmatcher"

// Scope is what a command is built for: the folder a task runs in and
// the file the user is looking at, if any.
type Scope struct {
	Folder     Folder
	ActiveFile string
}

// Variant decides how commands are built for one kind of task provider.
type Variant struct {
	// Type identifies the provider, e.g. "pre-commit-stage".
	Type string
	// HookCommand returns the shell command running a single hook.
	HookCommand func(hookID string, s Scope) string
	// RunAllCommand returns the shell command running every hook.
	RunAllCommand func(s Scope) string
	// ProblemMatcher is attached to runnable tasks. May be empty.
	ProblemMatcher string
}

// Mode selects the files a runner is asked to check.
type Mode int

// Modes supported by [NewVariant].
const (
	// ModeStaged checks files staged in Git (the runner's default).
	ModeStaged Mode = iota
	// ModeFile checks only the active file.
	ModeFile
	// ModeAllFiles checks every file in the repository.
	ModeAllFiles
)

// Provider types of the built-in variants.
const (
	StageType       = "pre-commit-stage"
	CurrentFileType = "pre-commit-current-file"
	AllFilesType    = "pre-commit-all-files"
)

// Built-in variants.
var (
	// Stage runs hooks on staged files.
	Stage = NewVariant(StageType, Runner, ModeStaged)
	// CurrentFile runs hooks on the active file only.
	CurrentFile = NewVariant(CurrentFileType, Runner, ModeFile)
	// AllFiles runs hooks on every file in the repository.
	AllFiles = NewVariant(AllFilesType, Runner, ModeAllFiles)
)

// NewVariant returns a Variant of type typ invoking runner as
// "<runner> run [<hook>] [--files <file> | --all-files]".
//
// In [ModeFile] an unknown active file is passed as an empty argument;
// the runner reports it when the task runs.
func NewVariant(typ, runner string, mode Mode) Variant {
	build := func(hookID string, s Scope) string {
		args := []string{runner, "run"}
		if hookID != "" {
			args = append(args, hookID)
		}
		switch mode {
		case ModeFile:
			args = append(args, "--files", s.ActiveFile)
		case ModeAllFiles:
			args = append(args, "--all-files")
		}
		return shellquote.Join(args...)
	}
	return Variant{
		Type:           typ,
		HookCommand:    build,
		RunAllCommand:  func(s Scope) string { return build("", s) },
		ProblemMatcher: ProblemMatcher,
	}
}

// Variants returns the built-in variants keyed by their short names, as
// accepted on the command line.
func Variants() map[string]Variant {
	return map[string]Variant{
		"stage":        Stage,
		"current-file": CurrentFile,
		"all-files":    AllFiles,
	}
}
