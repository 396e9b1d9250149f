package pattern_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/retroforge/peep68k/pattern"
	"github.com/retroforge/peep68k/verify"
)

// wordSeeds exercise sign, zero, and word boundaries.
var wordSeeds = []int32{0, 1, -1, 4, -4, 127, -128, 255, 0x7fff, -0x8000, 0x12345678, -0x1234567}

var _ = Describe("movelim patterns", func() {
	Describe("redundant-register-copy", func() {
		p := pattern.Default().ByName("redundant-register-copy")

		It("rewrites the load-then-copy idiom into two moveq", func() {
			win := parseLines("\tmove.l #4,d0", "\tmove.l d0,d1")
			b, ok := p.Match(win)
			Expect(ok).To(BeTrue())
			Expect(renderAll(p.Rewrite(win, b))).To(Equal([]string{
				"\tmoveq\t#4,d0",
				"\tmoveq\t#4,d1",
			}))
		})

		It("keeps the %-prefixed register spelling", func() {
			win := parseLines("\tmove.l #-3,%d2", "\tmove.l %d2,%d5")
			b, ok := p.Match(win)
			Expect(ok).To(BeTrue())
			Expect(renderAll(p.Rewrite(win, b))).To(Equal([]string{
				"\tmoveq\t#-3,%d2",
				"\tmoveq\t#-3,%d5",
			}))
		})

		It("rejects immediates outside the moveq range", func() {
			_, ok := p.Match(parseLines("\tmove.l #128,d0", "\tmove.l d0,d1"))
			Expect(ok).To(BeFalse())
		})

		It("rejects a copy from a different register", func() {
			_, ok := p.Match(parseLines("\tmove.l #4,d0", "\tmove.l d2,d1"))
			Expect(ok).To(BeFalse())
		})

		It("rejects a self copy", func() {
			_, ok := p.Match(parseLines("\tmove.l #4,d0", "\tmove.l d0,d0"))
			Expect(ok).To(BeFalse())
		})

		It("is equivalent including condition codes", func() {
			win := parseLines("\tmove.l #4,d0", "\tmove.l d0,d1")
			b, _ := p.Match(win)
			repl := p.Rewrite(win, b)
			envs := verify.SeedEnvs([]string{"d0", "d1"}, wordSeeds)
			Expect(verify.Equivalent(win, repl, envs, true)).To(Succeed())
		})
	})

	Describe("copy-back-elimination", func() {
		p := pattern.Default().ByName("copy-back-elimination")

		It("drops the copy back", func() {
			win := parseLines("\tmove.l d0,d1", "\tmove.l d1,d0")
			b, ok := p.Match(win)
			Expect(ok).To(BeTrue())
			Expect(renderAll(p.Rewrite(win, b))).To(Equal([]string{"\tmove.l d0,d1"}))
		})

		It("requires matching sizes", func() {
			_, ok := p.Match(parseLines("\tmove.l d0,d1", "\tmove.w d1,d0"))
			Expect(ok).To(BeFalse())
		})

		It("rejects an interposed third register", func() {
			_, ok := p.Match(parseLines("\tmove.l d0,d1", "\tmove.l d1,d2"))
			Expect(ok).To(BeFalse())
		})

		It("is equivalent including condition codes", func() {
			win := parseLines("\tmove.w d3,d4", "\tmove.w d4,d3")
			b, _ := p.Match(win)
			repl := p.Rewrite(win, b)
			envs := verify.SeedEnvs([]string{"d3", "d4"}, wordSeeds)
			Expect(verify.Equivalent(win, repl, envs, true)).To(Succeed())
		})
	})

	Describe("moveq-fold", func() {
		p := pattern.Default().ByName("moveq-fold")

		It("folds a small long immediate", func() {
			win := parseLines("\tmove.l #100,d3")
			b, ok := p.Match(win)
			Expect(ok).To(BeTrue())
			Expect(renderAll(p.Rewrite(win, b))).To(Equal([]string{"\tmoveq\t#100,d3"}))
		})

		It("accepts hex immediates", func() {
			win := parseLines("\tmove.l #0x7f,d3")
			b, ok := p.Match(win)
			Expect(ok).To(BeTrue())
			Expect(renderAll(p.Rewrite(win, b))).To(Equal([]string{"\tmoveq\t#127,d3"}))
		})

		It("rejects word-sized moves", func() {
			_, ok := p.Match(parseLines("\tmove.w #4,d0"))
			Expect(ok).To(BeFalse())
		})

		It("rejects out-of-range immediates", func() {
			for _, line := range []string{"\tmove.l #128,d0", "\tmove.l #-129,d0"} {
				_, ok := p.Match(parseLines(line))
				Expect(ok).To(BeFalse(), line)
			}
		})

		It("is equivalent including condition codes", func() {
			for _, imm := range []string{"#0", "#1", "#-1", "#127", "#-128"} {
				win := parseLines("\tmove.l " + imm + ",d0")
				b, ok := p.Match(win)
				Expect(ok).To(BeTrue(), imm)
				repl := p.Rewrite(win, b)
				envs := verify.SeedEnvs([]string{"d0"}, wordSeeds)
				Expect(verify.Equivalent(win, repl, envs, true)).To(Succeed(), imm)
			}
		})
	})
})
