package verify

import (
	"fmt"

	"github.com/retroforge/peep68k/asm"
)

// Env seeds named data registers before a run.
type Env map[string]int32

// SeedEnvs builds the cartesian product of seed values over the given
// registers. With the usual one or two bound registers and a dozen seeds
// this stays small enough to run exhaustively.
func SeedEnvs(regs []string, seeds []int32) []Env {
	envs := []Env{{}}
	for _, reg := range regs {
		var next []Env
		for _, env := range envs {
			for _, seed := range seeds {
				e := make(Env, len(env)+1)
				for k, v := range env {
					e[k] = v
				}
				e[reg] = seed
				next = append(next, e)
			}
		}
		envs = next
	}
	return envs
}

// Equivalent runs window and replacement from identical machines for every
// environment and fails on the first divergence in data-register state.
// When compareCCR is set the condition codes must match too.
func Equivalent(window, replacement []*asm.Line, envs []Env, compareCCR bool) error {
	for _, env := range envs {
		before := New()
		for reg, v := range env {
			if err := before.SetRegister(reg, v); err != nil {
				return err
			}
		}

		a := before.Clone()
		if err := a.Run(window); err != nil {
			return fmt.Errorf("window: %w", err)
		}
		b := before.Clone()
		if err := b.Run(replacement); err != nil {
			return fmt.Errorf("replacement: %w", err)
		}

		if a.D != b.D {
			return fmt.Errorf("register divergence under %v: window %v, replacement %v",
				env, a.D, b.D)
		}
		if compareCCR && a.CCR != b.CCR {
			return fmt.Errorf("CCR divergence under %v: window %+v, replacement %+v",
				env, a.CCR, b.CCR)
		}
	}
	return nil
}
