// Package api is the single entry point the host toolchain calls after code
// generation. Whatever happens inside, the call never fails the build: every
// error degrades to "leave the file alone and log".
package api

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/retroforge/peep68k/asm"
	"github.com/retroforge/peep68k/config"
	"github.com/retroforge/peep68k/engine"
	"github.com/retroforge/peep68k/pattern"
)

// Status classifies what happened to one file.
type Status int

const (
	// StatusSkipped means the file was never opened (no path, null device,
	// wrong extension, or optimizer disabled).
	StatusSkipped Status = iota
	// StatusUnchanged means no enabled pattern applied; the file on disk was
	// not rewritten at all.
	StatusUnchanged
	// StatusOptimized means the file was rewritten in place.
	StatusOptimized
	// StatusFailed means something went wrong and the original file was left
	// untouched.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusUnchanged:
		return "unchanged"
	case StatusOptimized:
		return "optimized"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome is what one invocation reports. The host ignores it; tests and the
// CLI do not.
type Outcome struct {
	Status   Status
	Rewrites int
	Passes   int
	Reason   string
}

// Optimizer processes assembly files in place.
type Optimizer interface {
	// Optimize rewrites the listing at path according to cfg. It never
	// returns an error and never panics; failures are reported in the
	// Outcome and logged.
	Optimize(path string, cfg config.Config) Outcome
}

type optimizerImpl struct {
	fs      FileSystem
	catalog *pattern.Catalog
	logger  *slog.Logger
}

// New returns an Optimizer over the bundled pattern catalog.
func New() Optimizer {
	return &optimizerImpl{
		fs:      osFS{},
		catalog: pattern.Default(),
		logger:  slog.Default().With("component", "peep68k"),
	}
}

// Optimize runs the default Optimizer on one file.
func Optimize(path string, cfg config.Config) Outcome {
	return New().Optimize(path, cfg)
}

func (o *optimizerImpl) Optimize(path string, cfg config.Config) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Status: StatusFailed, Reason: fmt.Sprintf("panic: %v", r)}
			o.logger.Error("optimizer panicked, file left untouched",
				"file", path, "panic", r)
		}
	}()

	if reason, skip := skipReason(path, cfg); skip {
		o.logger.Info("skipped", "file", path, "reason", reason)
		return Outcome{Status: StatusSkipped, Reason: reason}
	}

	out = o.run(path, cfg)
	switch out.Status {
	case StatusOptimized:
		o.logger.Info("optimized", "file", path,
			"rewrites", out.Rewrites, "passes", out.Passes)
	case StatusUnchanged:
		o.logger.Info("unchanged", "file", path, "passes", out.Passes)
	case StatusFailed:
		o.logger.Error("failed, file left untouched", "file", path, "reason", out.Reason)
	}
	return out
}

func skipReason(path string, cfg config.Config) (string, bool) {
	switch {
	case path == "":
		return "no input path", true
	case path == os.DevNull:
		return "null device", true
	case !strings.HasSuffix(path, ".s"):
		return "not an assembly file", true
	case cfg.Disable:
		return "disabled by configuration", true
	}
	return "", false
}

func (o *optimizerImpl) run(path string, cfg config.Config) Outcome {
	data, err := o.fs.ReadFile(path)
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: fmt.Sprintf("read: %v", err)}
	}

	base := strings.TrimSuffix(path, ".s")
	if cfg.KeepFiles {
		if err := o.fs.WriteFile(base+".copy.s", data, 0o644); err != nil {
			return Outcome{Status: StatusFailed, Reason: fmt.Sprintf("write pre-image: %v", err)}
		}
	}

	stream, err := asm.Parse(string(data))
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: fmt.Sprintf("parse: %v", err)}
	}

	matcher := engine.NewMatcher(o.catalog.Enabled(cfg.CategorySet()))
	scheduler := engine.NewScheduler(matcher, cfg.MaxPasses, o.logger.With("file", path))
	result, err := scheduler.Run(stream)
	if err != nil {
		return Outcome{
			Status:   StatusFailed,
			Rewrites: result.Rewrites,
			Passes:   result.Passes,
			Reason:   fmt.Sprintf("rewrite: %v", err),
		}
	}

	out := Outcome{Rewrites: result.Rewrites, Passes: result.Passes}
	if result.Rewrites == 0 {
		out.Status = StatusUnchanged
		return out
	}

	text := stream.Render()
	if cfg.KeepFiles {
		if err := o.fs.WriteFile(base+".opt.s", []byte(text), 0o644); err != nil {
			return Outcome{Status: StatusFailed, Reason: fmt.Sprintf("write post-image: %v", err)}
		}
	}
	if err := o.commit(path, []byte(text)); err != nil {
		return Outcome{Status: StatusFailed, Reason: err.Error()}
	}

	out.Status = StatusOptimized
	return out
}

// commit writes the new content next to the target and renames it into
// place, so a crash mid-write can never leave a truncated listing.
func (o *optimizerImpl) commit(path string, data []byte) error {
	tmp := path + ".peep.tmp"
	if err := o.fs.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := o.fs.Rename(tmp, path); err != nil {
		if rmErr := o.fs.Remove(tmp); rmErr != nil {
			o.logger.Warn("could not remove temp file", "file", tmp, "err", rmErr)
		}
		return fmt.Errorf("rename temp into place: %w", err)
	}
	return nil
}
