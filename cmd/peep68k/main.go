// peep68k rewrites one compiler-generated m68k assembly listing in place.
// The host compiler hook invokes it once per translation unit:
//
//	peep68k <file.s>
//
// Configuration comes from the YAML file named by $PEEP68K_CONFIG, when set.
// The exit code is zero for every per-file outcome, including failures: the
// optimizer must never break an otherwise-successful build.
package main

import (
	"log/slog"
	"os"

	"github.com/retroforge/peep68k/api"
	"github.com/retroforge/peep68k/config"
	"github.com/tebeka/atexit"
)

func main() {
	if len(os.Args) != 2 {
		slog.Error("usage: peep68k <file.s>")
		atexit.Exit(2)
	}

	cfg := config.Default()
	if path := os.Getenv("PEEP68K_CONFIG"); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			slog.Warn("config unusable, continuing with defaults", "err", err)
		} else {
			cfg = loaded
		}
	}

	api.Optimize(os.Args[1], cfg)

	atexit.Exit(0)
}
