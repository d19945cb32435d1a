// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package gitroot locates the root of the Git repository containing a
// directory.
package gitroot

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"go.astrophena.name/pctasks/logger"
)

// Locator finds repository roots by asking the version control tool.
type Locator struct {
	// Command is the Git executable. Defaults to "git".
	Command string
	// Logger receives failures. Defaults to a logger that discards
	// everything.
	Logger *logger.Logger
}

// FindRoot runs "git rev-parse --show-toplevel" in dir and returns the
// repository root. ok is false if dir is empty, is not inside a
// repository, or the command fails for any other reason; the cause is
// logged, never returned.
func (l *Locator) FindRoot(ctx context.Context, dir string) (root string, ok bool) {
	log := l.Logger
	if log == nil {
		log = logger.Get(ctx)
	}
	if dir == "" {
		log.Warn("no folder to find a Git repository for")
		return "", false
	}

	command := l.Command
	if command == "" {
		command = "git"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Warn("error finding Git repository root",
			"dir", dir,
			"err", err,
			"stderr", strings.TrimSpace(stderr.String()),
		)
		return "", false
	}

	root = strings.TrimSpace(stdout.String())
	if root == "" {
		log.Warn("Git printed an empty repository root", "dir", dir)
		return "", false
	}
	root = filepath.Clean(root)
	log.Debug("found Git repository root", "dir", dir, "root", root)
	return root, true
}
