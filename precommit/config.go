// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package precommit reads pre-commit configuration files.
//
// Only the part of the schema needed to enumerate hooks is decoded: the
// top-level repos list, the repo identifier of each entry and the id (and
// optional name) of each hook. Everything else is ignored.
package precommit

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the name of the pre-commit configuration file.
const ConfigFileName = ".pre-commit-config.yaml"

// ErrMalformed is returned when a configuration file can't be parsed or
// doesn't have the expected shape.
var ErrMalformed = errors.New("malformed pre-commit configuration")

// Config is a parsed pre-commit configuration.
type Config struct {
	Repos []Repo `yaml:"repos"`
}

// Repo is a source of hooks declared in a configuration.
type Repo struct {
	// URL is the value of the repo key. It is a URL or one of the special
	// values "local" and "meta".
	URL   string `yaml:"repo"`
	Hooks []Hook `yaml:"hooks"`
}

// Hook is a single hook declared by a [Repo].
type Hook struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// HookCount returns the number of hooks declared across all repos,
// duplicates included.
func (c *Config) HookCount() int {
	var n int
	for _, r := range c.Repos {
		n += len(r.Hooks)
	}
	return n
}

// rawConfig mirrors Config with pointers, so that missing keys can be told
// apart from empty ones.
type rawConfig struct {
	Repos *[]rawRepo `yaml:"repos"`
}

type rawRepo struct {
	URL   *string    `yaml:"repo"`
	Hooks *[]rawHook `yaml:"hooks"`
}

type rawHook struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// Parse parses a configuration document. Errors wrap [ErrMalformed].
func Parse(data []byte) (*Config, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrMalformed)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Repos == nil {
		return nil, fmt.Errorf("%w: missing repos", ErrMalformed)
	}

	c := &Config{Repos: make([]Repo, 0, len(*raw.Repos))}
	for i, rr := range *raw.Repos {
		if rr.URL == nil {
			return nil, fmt.Errorf("%w: repos[%d]: missing repo", ErrMalformed, i)
		}
		if rr.Hooks == nil {
			return nil, fmt.Errorf("%w: repos[%d] (%s): missing hooks", ErrMalformed, i, *rr.URL)
		}
		r := Repo{URL: *rr.URL, Hooks: make([]Hook, 0, len(*rr.Hooks))}
		for j, h := range *rr.Hooks {
			if h.ID == "" {
				return nil, fmt.Errorf("%w: repos[%d] (%s): hooks[%d]: missing id", ErrMalformed, i, r.URL, j)
			}
			r.Hooks = append(r.Hooks, Hook(h))
		}
		c.Repos = append(c.Repos, r)
	}
	return c, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Exists reports whether a configuration file exists at path. A missing
// file is not an error.
func Exists(path string) (bool, error) {
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return fi.Mode().IsRegular(), nil
}
