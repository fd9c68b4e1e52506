// Package filesweep implements a built-in agent type that moves files
// matching a glob from a source directory into a destination directory.
package filesweep

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/openherd/agentd/internal/domain/agent"
	"github.com/openherd/agentd/internal/port/agenttype"
)

const typeName = "filesweep"

// Register adds the filesweep type to the default registration table.
func Register() {
	agenttype.Register(agenttype.Definition{
		Name: typeName,
		Metadata: agenttype.Metadata{
			Description: "Moves files matching a glob between directories",
			Version:     "1.0.0",
			Category:    "housekeeping",
			Options: map[string]agenttype.OptionSpec{
				"source":  {Type: "string", Required: true, Description: "Directory to sweep"},
				"dest":    {Type: "string", Required: true, Description: "Directory to move files into"},
				"pattern": {Type: "string", Default: "*", Description: "Glob matched against file names"},
			},
			Dependencies: []string{"filesystem"},
		},
		Factory: New,
	})
}

// Sweep moves matching files on every run.
type Sweep struct {
	source  string
	dest    string
	pattern string
	log     *slog.Logger

	mu         sync.Mutex
	lastMoved  int
	totalMoved int64
}

// New constructs a Sweep from its merged configuration.
func New(cfg agent.Config, log *slog.Logger) (agenttype.Runner, error) {
	source := cfg.StringOption("source", "")
	dest := cfg.StringOption("dest", "")
	if source == "" || dest == "" {
		return nil, fmt.Errorf("filesweep: options source and dest are required")
	}

	pattern := cfg.StringOption("pattern", "*")
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("filesweep: bad pattern %q: %w", pattern, err)
	}

	return &Sweep{source: source, dest: dest, pattern: pattern, log: log}, nil
}

// Run moves every matching regular file. One unmovable file fails the
// run after the remaining files have been attempted.
func (s *Sweep) Run(ctx context.Context) error {
	entries, err := os.ReadDir(s.source)
	if err != nil {
		return fmt.Errorf("filesweep: read %s: %w", s.source, err)
	}

	if err := os.MkdirAll(s.dest, 0o755); err != nil {
		return fmt.Errorf("filesweep: create %s: %w", s.dest, err)
	}

	moved := 0
	var firstErr error
	for _, entry := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() {
			continue
		}
		if ok, _ := filepath.Match(s.pattern, entry.Name()); !ok {
			continue
		}

		from := filepath.Join(s.source, entry.Name())
		to := filepath.Join(s.dest, entry.Name())
		if err := os.Rename(from, to); err != nil {
			s.log.Error("move failed", "file", entry.Name(), "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("filesweep: move %s: %w", entry.Name(), err)
			}
			continue
		}
		moved++
	}

	s.mu.Lock()
	s.lastMoved = moved
	s.totalMoved += int64(moved)
	s.mu.Unlock()

	if moved > 0 {
		s.log.Info("swept files", "moved", moved)
	}
	return firstErr
}

// Status extends the base projection with sweep counters.
func (s *Sweep) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]any{
		"source":      s.source,
		"dest":        s.dest,
		"last_moved":  s.lastMoved,
		"total_moved": s.totalMoved,
	}
}
