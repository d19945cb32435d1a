// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package version provides build information of the running binary.
package version

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"go.astrophena.name/pctasks/syncx"
)

// Info describes a build.
type Info struct {
	// Name is the name of the binary.
	Name string
	// Go is the Go version used to build the binary.
	Go string
	// Commit is the VCS revision, if known.
	Commit string
	// Modified reports whether the working tree had uncommitted changes.
	Modified bool
	// Built is the time of the VCS revision, if known.
	Built time.Time
}

// String returns a multi-line human-readable representation of Info.
func (i Info) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ", i.Name)
	if i.Commit == "" {
		sb.WriteString("(devel)")
	} else {
		sb.WriteString(i.Commit)
		if i.Modified {
			sb.WriteString("-dirty")
		}
	}
	fmt.Fprintf(&sb, "\nbuilt with %s (%s/%s)", i.Go, runtime.GOOS, runtime.GOARCH)
	if !i.Built.IsZero() {
		fmt.Fprintf(&sb, " at %s", i.Built.Format(time.RFC3339))
	}
	sb.WriteString("\n")
	return sb.String()
}

var info syncx.Lazy[Info]

// Version returns the build information of the running binary.
func Version() Info { return info.Get(readInfo) }

// CmdName returns the name of the running binary without extension.
func CmdName() string {
	name := filepath.Base(os.Args[0])
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func readInfo() Info {
	i := Info{Name: CmdName(), Go: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return i
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.modified":
			i.Modified = s.Value == "true"
		case "vcs.time":
			i.Built, _ = time.Parse(time.RFC3339, s.Value)
		}
	}
	return i
}
