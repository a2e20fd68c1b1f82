package core_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/core"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

var _ = Describe("Core", func() {
	var c *core.Core

	BeforeEach(func() {
		var err error
		c, err = core.NewCore()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create a core with no program", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Program()).To(BeEmpty())
		Expect(c.Complete()).To(BeFalse())
		Expect(c.Frequency()).To(Equal(1 * sim.GHz))
	})

	It("should reject invalid configurations", func() {
		machine := tomasulo.DefaultConfig()
		machine.ROBSize = 0
		_, err := core.NewCore(core.WithMachineConfig(machine))
		Expect(err).To(HaveOccurred())

		timing := latency.DefaultTimingConfig()
		timing.ALULatency = 0
		_, err = core.NewCore(core.WithTimingConfig(timing))
		Expect(err).To(HaveOccurred())

		_, err = core.NewCore(core.WithFrequency(0))
		Expect(err).To(HaveOccurred())
	})

	It("should apply the timing configuration", func() {
		timing := latency.DefaultTimingConfig()
		timing.ALULatency = 5

		var err error
		c, err = core.NewCore(core.WithTimingConfig(timing))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Load(insts.MustParse("ADD R1, R2, R3"), "t")).To(Succeed())
		Expect(c.RunToCompletion(context.Background())).To(Succeed())

		Expect(c.Stats().TotalCycles).To(Equal(8))
		Expect(c.Instructions()[0].Latency).To(Equal(uint64(5)))
	})

	Describe("RunToCompletion", func() {
		BeforeEach(func() {
			Expect(c.Load(insts.MustParse("ADD R1, R2, R3\nSTORE R1, 0(R0)"), "t")).
				To(Succeed())
		})

		It("should run the program through the event loop", func() {
			Expect(c.RunToCompletion(context.Background())).To(Succeed())

			stats := c.Stats()
			Expect(stats.Complete).To(BeTrue())
			Expect(stats.Committed).To(Equal(uint64(2)))
			Expect(c.Registers().Public[1]).To(Equal(5.0))
			Expect(c.Memory(0)).To(Equal(5.0))
		})

		It("should report simulated time in cycles of the clock", func() {
			Expect(c.RunToCompletion(context.Background())).To(Succeed())

			cycles := c.Stats().Cycles
			Expect(float64(c.SimTime())).To(BeNumerically("~", float64(cycles)*1e-9, 1e-12))
		})

		It("should do nothing once complete", func() {
			Expect(c.RunToCompletion(context.Background())).To(Succeed())
			cycles := c.Stats().Cycles

			Expect(c.RunToCompletion(context.Background())).To(Succeed())
			Expect(c.Stats().Cycles).To(Equal(cycles))
		})

		It("should stop when the context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := c.RunToCompletion(ctx)

			Expect(err).To(MatchError(context.Canceled))
			Expect(c.Stats().Cycles).To(Equal(0))
			Expect(c.Complete()).To(BeFalse())
		})

		It("should match stepping by hand", func() {
			Expect(c.RunToCompletion(context.Background())).To(Succeed())
			ran := c.Log()

			c.Reset()
			for !c.Complete() {
				c.Step()
			}

			Expect(c.Log()).To(Equal(ran[1:]))
		})

		It("should allow snapshots while running", func() {
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				for i := 0; i < 50; i++ {
					_ = c.Stations()
					_ = c.ReorderBuffer()
					_ = c.Stats()
				}
			}()

			Expect(c.RunToCompletion(context.Background())).To(Succeed())
			wg.Wait()
			Expect(c.Complete()).To(BeTrue())
		})
	})

	It("should stop a livelocked program", func() {
		Expect(c.Load(insts.MustParse("BEQ R0, R0, 1"), "loop")).To(Succeed())

		Expect(c.RunToCompletion(context.Background())).To(Succeed())

		stats := c.Stats()
		Expect(stats.Complete).To(BeTrue())
		Expect(stats.TimedOut).To(BeTrue())
		Expect(stats.TotalCycles).To(Equal(0))
	})

	It("should stop at the run ceiling", func() {
		machine := tomasulo.DefaultConfig()
		machine.MaxCycles = 1000
		machine.MaxReissues = 1000
		machine.RunCeiling = 20

		var err error
		c, err = core.NewCore(core.WithMachineConfig(machine))
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Load(insts.MustParse("BEQ R0, R0, 1"), "loop")).To(Succeed())

		Expect(c.RunToCompletion(context.Background())).To(Succeed())
		Expect(c.Stats().Cycles).To(Equal(20))
		Expect(c.Complete()).To(BeFalse())
	})

	Describe("LoadFile", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("should load a program file", func() {
			path := filepath.Join(tempDir, "prog.asm")
			Expect(os.WriteFile(path, []byte("MUL R1, R2, R3\n"), 0644)).To(Succeed())

			Expect(c.LoadFile(path)).To(Succeed())

			Expect(c.Program()).To(HaveLen(1))
			Expect(c.Log()).To(Equal([]string{"Loaded 1 instructions from prog.asm"}))
		})

		It("should keep the previous program on error", func() {
			Expect(c.Load(insts.MustParse("ADD R1, R2, R3"), "old")).To(Succeed())
			c.Step()

			path := filepath.Join(tempDir, "bad.asm")
			Expect(os.WriteFile(path, []byte("ADD R1, R2\n"), 0644)).To(Succeed())

			Expect(c.LoadFile(path)).To(MatchError(insts.ErrSyntax))
			Expect(c.Program()[0].String()).To(Equal("ADD R1, R2, R3"))
			Expect(c.Stats().Cycles).To(Equal(1))
		})

		It("should validate registers against the machine", func() {
			machine := tomasulo.DefaultConfig()
			machine.PublicRegisters = 4

			var err error
			c, err = core.NewCore(core.WithMachineConfig(machine))
			Expect(err).NotTo(HaveOccurred())

			path := filepath.Join(tempDir, "wide.asm")
			Expect(os.WriteFile(path, []byte("ADD R9, R1, R2\n"), 0644)).To(Succeed())

			Expect(c.LoadFile(path)).To(MatchError(insts.ErrBadRegister))
		})
	})

	Describe("hooks", func() {
		It("should forward engine events", func() {
			mockCtrl := gomock.NewController(GinkgoT())
			hook := NewMockHook(mockCtrl)

			var commits int
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				if ctx.Pos == tomasulo.HookPosCommit {
					commits++
				}
			}).AnyTimes()

			var err error
			c, err = core.NewCore(core.WithHook(hook))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Load(insts.MustParse("ADD R1, R2, R3\nSUB R4, R1, R2"), "t")).To(Succeed())
			Expect(c.RunToCompletion(context.Background())).To(Succeed())

			Expect(commits).To(Equal(2))
		})
	})
})
