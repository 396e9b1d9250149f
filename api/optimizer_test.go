package api

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/retroforge/peep68k/asm"
	"github.com/retroforge/peep68k/config"
	"github.com/retroforge/peep68k/pattern"
)

const (
	classicIdiom = "\tmove.l #4,d0\n\tmove.l d0,d1\n"
	classicOut   = "\tmoveq\t#4,d0\n\tmoveq\t#4,d1\n"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(GinkgoWriter, nil))
}

var _ = Describe("Optimizer", func() {
	var (
		mockCtrl *gomock.Controller
		fs       *MockFileSystem
		o        *optimizerImpl
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		fs = NewMockFileSystem(mockCtrl)
		o = &optimizerImpl{
			fs:      fs,
			catalog: pattern.Default(),
			logger:  quietLogger(),
		}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("skipping", func() {
		// No expectations are set on the mock, so any filesystem call
		// here fails the test.

		It("skips an empty path", func() {
			out := o.Optimize("", config.Default())
			Expect(out.Status).To(Equal(StatusSkipped))
		})

		It("skips the null device", func() {
			out := o.Optimize(os.DevNull, config.Default())
			Expect(out.Status).To(Equal(StatusSkipped))
		})

		It("skips files without the assembly extension", func() {
			out := o.Optimize("main.c", config.Default())
			Expect(out.Status).To(Equal(StatusSkipped))
		})

		It("skips everything when disabled", func() {
			cfg := config.NewBuilder().WithDisable(true).Build()
			out := o.Optimize("main.s", cfg)
			Expect(out.Status).To(Equal(StatusSkipped))
			Expect(out.Reason).To(ContainSubstring("disabled"))
		})
	})

	Context("rewriting", func() {
		It("rewrites via a temp file and a rename", func() {
			fs.EXPECT().ReadFile("main.s").Return([]byte(classicIdiom), nil)
			fs.EXPECT().
				WriteFile("main.s.peep.tmp", []byte(classicOut), gomock.Any()).
				Return(nil)
			fs.EXPECT().Rename("main.s.peep.tmp", "main.s").Return(nil)

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusOptimized))
			Expect(out.Rewrites).To(Equal(1))
			Expect(out.Passes).To(BeNumerically(">=", 1))
		})

		It("leaves an unchanged file completely alone", func() {
			fs.EXPECT().ReadFile("main.s").Return([]byte("\trts\n"), nil)

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusUnchanged))
			Expect(out.Rewrites).To(BeZero())
		})

		It("writes pre- and post-images when keep-files is on", func() {
			cfg := config.NewBuilder().WithKeepFiles(true).Build()

			fs.EXPECT().ReadFile("main.s").Return([]byte(classicIdiom), nil)
			fs.EXPECT().
				WriteFile("main.copy.s", []byte(classicIdiom), gomock.Any()).
				Return(nil)
			fs.EXPECT().
				WriteFile("main.opt.s", []byte(classicOut), gomock.Any()).
				Return(nil)
			fs.EXPECT().WriteFile("main.s.peep.tmp", gomock.Any(), gomock.Any()).Return(nil)
			fs.EXPECT().Rename("main.s.peep.tmp", "main.s").Return(nil)

			out := o.Optimize("main.s", cfg)
			Expect(out.Status).To(Equal(StatusOptimized))
		})
	})

	Context("failures", func() {
		It("reports a read failure", func() {
			fs.EXPECT().ReadFile("main.s").Return(nil, errors.New("boom"))

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusFailed))
			Expect(out.Reason).To(ContainSubstring("read"))
		})

		It("reports a temp write failure without renaming", func() {
			fs.EXPECT().ReadFile("main.s").Return([]byte(classicIdiom), nil)
			fs.EXPECT().
				WriteFile("main.s.peep.tmp", gomock.Any(), gomock.Any()).
				Return(errors.New("disk full"))

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusFailed))
			Expect(out.Reason).To(ContainSubstring("write temp"))
		})

		It("removes the temp file when the rename fails", func() {
			fs.EXPECT().ReadFile("main.s").Return([]byte(classicIdiom), nil)
			fs.EXPECT().WriteFile("main.s.peep.tmp", gomock.Any(), gomock.Any()).Return(nil)
			fs.EXPECT().
				Rename("main.s.peep.tmp", "main.s").
				Return(errors.New("cross-device link"))
			fs.EXPECT().Remove("main.s.peep.tmp").Return(nil)

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusFailed))
			Expect(out.Reason).To(ContainSubstring("rename"))
		})

		It("aborts when a rewrite would orphan a trailing label", func() {
			dropNop := &pattern.Pattern{
				ID:        1,
				Name:      "drop-nop",
				Category:  pattern.CategoryMoveElim,
				MinWindow: 1,
				MaxWindow: 1,
				Match: func(win []*asm.Line) (pattern.Bindings, bool) {
					if win[0].Kind != asm.KindInstruction || win[0].Mnemonic != "nop" {
						return nil, false
					}
					return pattern.Bindings{}, true
				},
				Rewrite: func([]*asm.Line, pattern.Bindings) []*asm.Line {
					return nil
				},
			}
			o.catalog = pattern.NewCatalog(dropNop)

			fs.EXPECT().ReadFile("main.s").Return([]byte("\trts\nend:\tnop\n"), nil)

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusFailed))
			Expect(out.Reason).To(ContainSubstring("rewrite"))
		})

		It("contains a panicking pattern", func() {
			angry := &pattern.Pattern{
				ID:        1,
				Name:      "angry",
				Category:  pattern.CategoryMoveElim,
				MinWindow: 1,
				MaxWindow: 1,
				Match: func(win []*asm.Line) (pattern.Bindings, bool) {
					return pattern.Bindings{}, win[0].Kind == asm.KindInstruction
				},
				Rewrite: func([]*asm.Line, pattern.Bindings) []*asm.Line {
					panic("bad pattern")
				},
			}
			o.catalog = pattern.NewCatalog(angry)

			fs.EXPECT().ReadFile("main.s").Return([]byte("\trts\n"), nil)

			out := o.Optimize("main.s", config.Default())
			Expect(out.Status).To(Equal(StatusFailed))
			Expect(out.Reason).To(ContainSubstring("panic"))
		})
	})

	Context("on the real filesystem", func() {
		var dir string

		BeforeEach(func() {
			var err error
			dir, err = os.MkdirTemp("", "peep68k")
			Expect(err).ToNot(HaveOccurred())
			DeferCleanup(os.RemoveAll, dir)
		})

		It("rewrites a file in place and leaves no temp behind", func() {
			path := filepath.Join(dir, "main.s")
			Expect(os.WriteFile(path, []byte(classicIdiom), 0o644)).To(Succeed())

			cfg := config.NewBuilder().WithKeepFiles(true).Build()
			out := Optimize(path, cfg)
			Expect(out.Status).To(Equal(StatusOptimized))

			got, err := os.ReadFile(path)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(got)).To(Equal(classicOut))

			pre, err := os.ReadFile(filepath.Join(dir, "main.copy.s"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(pre)).To(Equal(classicIdiom))

			post, err := os.ReadFile(filepath.Join(dir, "main.opt.s"))
			Expect(err).ToNot(HaveOccurred())
			Expect(string(post)).To(Equal(classicOut))

			_, err = os.Stat(path + ".peep.tmp")
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})
})
