package tomasulo_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/tomasim/emu"
	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/latency"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

// eventRecorder collects every engine event.
type eventRecorder struct {
	events []tomasulo.Event
}

func (r *eventRecorder) Func(ctx sim.HookCtx) {
	r.events = append(r.events, ctx.Item.(tomasulo.Event))
}

func (r *eventRecorder) kinds(pos *sim.HookPos) []tomasulo.Event {
	var out []tomasulo.Event
	for _, evt := range r.events {
		if evt.Kind == pos.Name {
			out = append(out, evt)
		}
	}
	return out
}

func findStation(stations []tomasulo.StationSnapshot, name string) tomasulo.StationSnapshot {
	for _, st := range stations {
		if st.Name == name {
			return st
		}
	}
	Fail("no station named " + name)
	return tomasulo.StationSnapshot{}
}

func logContains(log []string, substr string) bool {
	for _, line := range log {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// checkOwnership asserts that every busy slot owns a distinct physical
// register that is not on the free list.
func checkOwnership(engine *tomasulo.Engine) {
	owned := make(map[emu.PhysReg]bool)
	for _, slot := range engine.ReorderBuffer() {
		Expect(slot.Busy).To(BeTrue())
		Expect(owned).NotTo(HaveKey(slot.Renamed))
		owned[slot.Renamed] = true
	}
	for _, p := range engine.Registers().FreeList {
		Expect(owned).NotTo(HaveKey(p))
	}
	Expect(len(owned) + len(engine.Registers().FreeList)).
		To(Equal(tomasulo.DefaultConfig().PhysicalRegisters))
}

func runChecked(engine *tomasulo.Engine) {
	for !engine.Complete() {
		engine.Step()
		checkOwnership(engine)
	}
}

var _ = Describe("Engine", func() {
	var engine *tomasulo.Engine

	load := func(src string) {
		Expect(engine.Load(insts.MustParse(src), "test")).To(Succeed())
	}

	BeforeEach(func() {
		engine = tomasulo.NewEngine()
	})

	Describe("NewEngine", func() {
		It("should start with an empty machine", func() {
			Expect(engine.Cycle()).To(Equal(0))
			Expect(engine.Complete()).To(BeFalse())
			Expect(engine.Stations()).To(HaveLen(12))
			Expect(engine.ReorderBuffer()).To(BeEmpty())
			Expect(engine.ReorderBufferSlots()).To(HaveLen(8))

			regs := engine.Registers()
			Expect(regs.Public).To(HaveLen(17))
			Expect(regs.Public[16]).To(Equal(16.0))
			Expect(regs.Physical).To(HaveLen(33))
			Expect(regs.FreeList).To(HaveLen(33))
			Expect(regs.FreeList[0]).To(Equal(emu.PhysReg(0)))
			Expect(regs.RenameMap).To(BeEmpty())
			Expect(engine.Memory(1023)).To(Equal(1023.0))
		})

		It("should name stations by class in pool order", func() {
			names := make([]string, 0, 12)
			for _, st := range engine.Stations() {
				names = append(names, st.Name)
			}
			Expect(names).To(Equal([]string{
				"Add1", "Add2", "Add3",
				"Mult1", "Mult2", "Mult3",
				"Load1", "Load2", "Load3",
				"Branch1", "Branch2", "Branch3",
			}))
		})

		It("should honor a custom machine configuration", func() {
			config := tomasulo.DefaultConfig()
			config.ROBSize = 4
			config.ArithStations = 1
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))

			Expect(engine.ReorderBufferSlots()).To(HaveLen(4))
			Expect(engine.Stations()).To(HaveLen(10))
			Expect(engine.Config().ROBSize).To(Equal(4))
		})
	})

	Describe("Load", func() {
		It("should log the load and keep the source", func() {
			load("ADD R1, R2, R3\nSUB R4, R1, R2")

			Expect(engine.ProgramLength()).To(Equal(2))
			Expect(engine.Source()).To(Equal("test"))
			Expect(engine.Log()).To(Equal([]string{"Loaded 2 instructions from test"}))
		})

		It("should reject registers the machine does not have", func() {
			config := tomasulo.DefaultConfig()
			config.PublicRegisters = 4
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))

			err := engine.Load(insts.MustParse("ADD R5, R1, R2"), "bad")
			Expect(err).To(MatchError(tomasulo.ErrInvalidProgram))
		})

		It("should reject out-of-range branch targets", func() {
			prog := []*insts.Instruction{
				{Op: insts.OpBEQ, Rd: insts.NoReg, Rs1: 0, Rs2: 0, Imm: 3, Line: 1},
			}
			Expect(engine.Load(prog, "bad")).To(MatchError(tomasulo.ErrInvalidProgram))
		})

		It("should leave the previous program untouched on error", func() {
			load("ADD R1, R2, R3")
			engine.Step()

			err := engine.Load([]*insts.Instruction{nil}, "bad")
			Expect(err).To(HaveOccurred())
			Expect(engine.Source()).To(Equal("test"))
			Expect(engine.Cycle()).To(Equal(1))
			Expect(engine.ReorderBuffer()).To(HaveLen(1))
		})
	})

	Describe("single ADD", func() {
		BeforeEach(func() {
			load("ADD R1, R2, R3")
		})

		It("should commit R1 = 5 after the ADD latency plus overhead", func() {
			Expect(engine.Run()).To(BeTrue())

			Expect(engine.Registers().Public[1]).To(Equal(5.0))
			Expect(engine.TotalCycles()).To(Equal(5))
			Expect(engine.Committed()).To(Equal(uint64(1)))
			Expect(engine.IPC()).To(BeNumerically("~", 1.0/5.0))
			Expect(engine.TimedOut()).To(BeFalse())
		})

		It("should record the instruction timeline", func() {
			engine.Run()

			timeline := engine.Instructions()
			Expect(timeline).To(HaveLen(1))
			Expect(timeline[0].Status).To(Equal(tomasulo.StatusCommitted))
			Expect(timeline[0].Latency).To(Equal(uint64(2)))
			Expect(timeline[0].IssueCycle).To(Equal(1))
			Expect(timeline[0].ExecCycle).To(Equal(2))
			Expect(timeline[0].WriteCycle).To(Equal(4))
			Expect(timeline[0].CommitCycle).To(Equal(5))
			Expect(timeline[0].Reissues).To(Equal(0))
		})

		It("should rename R1 at issue and release the name at commit", func() {
			engine.Step()

			regs := engine.Registers()
			Expect(regs.RenameMap).To(HaveKeyWithValue(insts.Reg(1), emu.PhysReg(0)))
			Expect(regs.Physical[0]).To(Equal(1.0))
			Expect(regs.FreeList).To(HaveLen(32))

			rob := engine.ReorderBuffer()
			Expect(rob).To(HaveLen(1))
			Expect(rob[0].Index).To(Equal(0))
			Expect(rob[0].Instruction).To(Equal("ADD R1, R2, R3"))
			Expect(rob[0].StateDescription()).To(Equal("Processing"))
			Expect(rob[0].PublicReg).To(Equal(insts.Reg(1)))

			engine.Run()

			regs = engine.Registers()
			Expect(regs.RenameMap).To(BeEmpty())
			Expect(regs.FreeList).To(HaveLen(33))
			Expect(regs.FreeList[32]).To(Equal(emu.PhysReg(0)))
			Expect(regs.Physical[0]).To(Equal(5.0))
		})

		It("should walk the slot through its states", func() {
			engine.Step()
			engine.Step()
			Expect(engine.ReorderBuffer()[0].State).To(Equal(tomasulo.SlotExecuting))
			engine.Step()
			Expect(engine.ReorderBuffer()[0].State).To(Equal(tomasulo.SlotExecuted))
			engine.Step()
			Expect(engine.ReorderBuffer()[0].State).To(Equal(tomasulo.SlotResultWritten))
			Expect(engine.ReorderBuffer()[0].Result).To(Equal(5.0))
			Expect(engine.Registers().Public[1]).To(Equal(1.0))
			engine.Step()
			Expect(engine.ReorderBuffer()).To(BeEmpty())
			Expect(engine.Complete()).To(BeTrue())
		})

		It("should ignore Step once complete", func() {
			engine.Run()
			logLen := len(engine.Log())

			engine.Step()

			Expect(engine.Cycle()).To(Equal(5))
			Expect(engine.Log()).To(HaveLen(logLen))
		})
	})

	Describe("RAW dependency", func() {
		BeforeEach(func() {
			load("ADD R1, R2, R3\nADD R4, R1, R2")
		})

		It("should wait on the producer until its result is broadcast", func() {
			engine.Step()
			engine.Step()
			engine.Step()

			add2 := findStation(engine.Stations(), "Add2")
			Expect(add2.Busy).To(BeTrue())
			Expect(add2.Qj).To(Equal(emu.PhysReg(0)))
			Expect(add2.HasVj).To(BeFalse())
			Expect(add2.Qk).To(Equal(emu.NoPhysReg))
			Expect(add2.Vk).To(Equal(2.0))
			Expect(add2.Dest).To(Equal(emu.PhysReg(1)))

			engine.Step()

			add2 = findStation(engine.Stations(), "Add2")
			Expect(add2.Qj).To(Equal(emu.NoPhysReg))
			Expect(add2.HasVj).To(BeTrue())
			Expect(add2.Vj).To(Equal(5.0))
		})

		It("should not execute the consumer before the producer writes", func() {
			engine.Run()

			timeline := engine.Instructions()
			Expect(timeline[1].ExecCycle).To(BeNumerically(">=", timeline[0].WriteCycle))
			Expect(engine.Registers().Public[4]).To(Equal(7.0))
			Expect(engine.TotalCycles()).To(Equal(7))
			Expect(engine.Bubbles()).To(BeNumerically(">", 0))
			Expect(logContains(engine.Log(), "RAW dependency")).To(BeTrue())
		})

		It("should take the value from a producer that already wrote", func() {
			load("ADD R1, R2, R3\nMUL R6, R6, R6\nMUL R7, R7, R7\nADD R4, R1, R2")
			for i := 0; i < 4; i++ {
				engine.Step()
			}

			consumer := findStation(engine.Stations(), "Add1")
			Expect(consumer.Busy).To(BeTrue())
			Expect(consumer.Qj).To(Equal(emu.NoPhysReg))
			Expect(consumer.Vj).To(Equal(5.0))
		})

		It("should pick the most recent in-flight writer", func() {
			load("MUL R1, R2, R3\nADD R1, R2, R2\nSUB R5, R1, R0")
			engine.Run()

			Expect(engine.Registers().Public[1]).To(Equal(4.0))
			Expect(engine.Registers().Public[5]).To(Equal(4.0))
		})
	})

	Describe("structural stalls", func() {
		It("should stall when every arithmetic station is busy", func() {
			timing := latency.DefaultTimingConfig()
			timing.ALULatency = 4
			engine = tomasulo.NewEngine(
				tomasulo.WithLatencyTable(latency.NewTableWithConfig(timing)))
			load("ADD R1, R2, R3\nADD R4, R2, R3\nADD R5, R2, R3\nADD R6, R2, R3")

			for i := 0; i < 4; i++ {
				engine.Step()
			}

			Expect(engine.PC()).To(Equal(3))
			Expect(logContains(engine.Log(),
				"Stall: No free arith reservation station, could not issue ADD R6, R2, R3")).
				To(BeTrue())
			Expect(engine.Bubbles()).To(BeNumerically(">=", 1))

			engine.Step()
			Expect(engine.PC()).To(Equal(3))

			engine.Step()
			Expect(engine.PC()).To(Equal(4))
			Expect(findStation(engine.Stations(), "Add1").Busy).To(BeTrue())

			engine.Run()
			Expect(engine.Registers().Public[6]).To(Equal(5.0))
		})

		It("should stall when the reorder buffer is full", func() {
			config := tomasulo.DefaultConfig()
			config.ROBSize = 2
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))
			load("ADD R1, R2, R3\nADD R4, R2, R3\nADD R5, R2, R3")

			engine.Run()

			Expect(logContains(engine.Log(), "Stall: Reorder buffer full")).To(BeTrue())
			Expect(engine.Registers().Public[5]).To(Equal(5.0))
			Expect(engine.Committed()).To(Equal(uint64(3)))
		})

		It("should stall when no physical register is free", func() {
			config := tomasulo.DefaultConfig()
			config.PhysicalRegisters = 2
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))
			load("ADD R1, R2, R3\nADD R4, R2, R3\nADD R5, R2, R3")

			engine.Run()

			Expect(logContains(engine.Log(), "Stall: No free physical register")).To(BeTrue())
			Expect(engine.Registers().Public[5]).To(Equal(5.0))
			Expect(engine.Registers().FreeList).To(HaveLen(2))
		})
	})

	Describe("memory", func() {
		It("should load from the effective address", func() {
			load("LOAD R1, 3(R2)")
			engine.Run()

			Expect(engine.Registers().Public[1]).To(Equal(5.0))
			Expect(engine.TotalCycles()).To(Equal(6))
		})

		It("should store the data register to the effective address", func() {
			load("STORE R4, 10(R5)")
			engine.Run()

			Expect(engine.Memory(15)).To(Equal(4.0))
			Expect(engine.Registers().Public[4]).To(Equal(4.0))
			Expect(logContains(engine.Log(), "stored 4.00 to mem[15]")).To(BeTrue())
		})

		It("should store a value produced in flight", func() {
			load("MUL R4, R4, R4\nSTORE R4, 0(R0)")
			engine.Run()

			Expect(engine.Memory(0)).To(Equal(16.0))
		})
	})

	Describe("branches", func() {
		It("should fall through when not taken", func() {
			load("BEQ R1, R2, 3\nADD R3, R1, R1")
			engine.Run()

			Expect(engine.Registers().Public[3]).To(Equal(2.0))
			Expect(engine.Stats().Flushes).To(Equal(uint64(0)))
			Expect(engine.Instructions()[1].Status).To(Equal(tomasulo.StatusCommitted))
		})

		Context("taken forward", func() {
			var rec *eventRecorder

			BeforeEach(func() {
				rec = &eventRecorder{}
				engine.AcceptHook(rec)
				load(`ADD R1, R2, R3
					BEQ R1, R5, 5
					ADD R7, R7, R7
					MUL R8, R8, R8
					SUB R9, R1, R2`)
			})

			It("should cancel the speculative instructions", func() {
				runChecked(engine)

				regs := engine.Registers()
				Expect(regs.Public[7]).To(Equal(7.0))
				Expect(regs.Public[8]).To(Equal(8.0))
				Expect(regs.Public[9]).To(Equal(3.0))

				timeline := engine.Instructions()
				Expect(timeline[2].Status).To(Equal(tomasulo.StatusSkipped))
				Expect(timeline[3].Status).To(Equal(tomasulo.StatusSkipped))
				Expect(timeline[4].Status).To(Equal(tomasulo.StatusCommitted))
				Expect(engine.Stats().Flushes).To(Equal(uint64(1)))
			})

			It("should never commit a cancelled instruction", func() {
				runChecked(engine)

				for _, evt := range rec.kinds(tomasulo.HookPosCommit) {
					Expect(evt.Inst).NotTo(Equal("ADD R7, R7, R7"))
					Expect(evt.Inst).NotTo(Equal("MUL R8, R8, R8"))
				}
				Expect(rec.kinds(tomasulo.HookPosCommit)).To(HaveLen(3))
			})

			It("should free the cancelled stations and names", func() {
				runChecked(engine)

				for _, st := range engine.Stations() {
					Expect(st.Busy).To(BeFalse())
				}
				Expect(engine.Registers().FreeList).To(HaveLen(33))
				Expect(engine.Registers().RenameMap).To(BeEmpty())
			})
		})

		It("should mark instructions jumped over as skipped", func() {
			load("BEQ R0, R0, 4\nADD R1, R1, R1\nADD R2, R2, R2\nADD R3, R3, R3")
			engine.Run()

			timeline := engine.Instructions()
			Expect(timeline[1].Status).To(Equal(tomasulo.StatusSkipped))
			Expect(timeline[2].Status).To(Equal(tomasulo.StatusSkipped))
			Expect(timeline[3].Status).To(Equal(tomasulo.StatusCommitted))
			Expect(engine.Registers().Public[2]).To(Equal(2.0))
			Expect(engine.Registers().Public[3]).To(Equal(6.0))
		})

		It("should run a counted loop to the same result as the emulator", func() {
			src := `SUB R4, R4, R4
				ADD R4, R4, R1
				BEQ R4, R3, 5
				BEQ R0, R0, 2
				ADD R5, R4, R4`
			load(src)
			runChecked(engine)

			ref := emu.NewEmulator(insts.MustParse(src))
			Expect(ref.Run()).To(Succeed())

			Expect(engine.TimedOut()).To(BeFalse())
			Expect(engine.Registers().Public).To(Equal(ref.RegFile().Public))
			Expect(engine.Registers().Public[5]).To(Equal(6.0))
			Expect(engine.Instructions()[1].Reissues).To(BeNumerically(">=", 2))
			Expect(engine.Instructions()[4].Status).To(Equal(tomasulo.StatusCommitted))
		})
	})

	Describe("livelock guards", func() {
		It("should time out a branch to itself", func() {
			load("BEQ R0, R0, 1")

			Expect(engine.Run()).To(BeTrue())

			Expect(engine.Complete()).To(BeTrue())
			Expect(engine.TimedOut()).To(BeTrue())
			Expect(engine.TotalCycles()).To(Equal(0))
			Expect(engine.IPC()).To(Equal(0.0))
			Expect(engine.Cycle()).To(Equal(101))

			log := engine.Log()
			Expect(log[len(log)-1]).To(Equal("Simulation complete. Total cycles: 0 (loop detected)"))
			Expect(logContains(log, "exceeded the limit of 100")).To(BeTrue())
		})

		It("should time out an instruction re-issued too often", func() {
			config := tomasulo.DefaultConfig()
			config.MaxCycles = 1000
			config.MaxReissues = 5
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))
			load("BEQ R0, R0, 1")

			engine.Run()

			Expect(engine.TimedOut()).To(BeTrue())
			Expect(engine.Cycle()).To(BeNumerically("<", 20))
			Expect(engine.Instructions()[0].Reissues).To(Equal(6))
			Expect(logContains(engine.Log(), "re-issued more than 5 times")).To(BeTrue())
		})

		It("should stop Run at the run ceiling", func() {
			config := tomasulo.DefaultConfig()
			config.MaxCycles = 1000
			config.MaxReissues = 1000
			config.RunCeiling = 30
			engine = tomasulo.NewEngine(tomasulo.WithConfig(config))
			load("BEQ R0, R0, 1")

			Expect(engine.Run()).To(BeFalse())
			Expect(engine.Cycle()).To(Equal(30))
			Expect(engine.Complete()).To(BeFalse())
		})
	})

	Describe("Reset", func() {
		It("should restore the initial machine and keep the program", func() {
			load("ADD R1, R2, R3\nSTORE R1, 0(R0)")
			engine.Run()
			Expect(engine.Memory(0)).To(Equal(5.0))

			engine.Reset()

			Expect(engine.ProgramLength()).To(Equal(2))
			Expect(engine.Cycle()).To(Equal(0))
			Expect(engine.Complete()).To(BeFalse())
			Expect(engine.Log()).To(BeEmpty())
			Expect(engine.Memory(0)).To(Equal(0.0))
			Expect(engine.Registers().Public[1]).To(Equal(1.0))
			for _, inst := range engine.Instructions() {
				Expect(inst.Status).To(Equal(tomasulo.StatusNotIssued))
				Expect(inst.IssueCycle).To(Equal(-1))
			}

			engine.Run()
			Expect(engine.Memory(0)).To(Equal(5.0))
		})

		It("should produce identical logs for repeated loads", func() {
			prog := insts.MustParse("ADD R1, R2, R3\nBEQ R1, R5, 4\nMUL R6, R1, R1\nDIV R7, R1, R2")

			Expect(engine.Load(prog, "p")).To(Succeed())
			engine.Run()
			first := engine.Log()

			engine.Reset()
			Expect(engine.Load(prog, "p")).To(Succeed())
			engine.Run()

			Expect(engine.Log()).To(Equal(first))
		})
	})

	Describe("invariants", func() {
		programs := []string{
			"ADD R1, R2, R3\nADD R4, R1, R2\nMUL R5, R4, R1\nSUB R6, R5, R4",
			"LOAD R1, 0(R2)\nDIV R3, R1, R2\nSTORE R3, 4(R0)\nADD R4, R3, R3",
			"MUL R1, R1, R1\nMUL R1, R1, R1\nADD R2, R1, R1\nADD R3, R2, R1\nSUB R4, R3, R2",
			"ADD R1, R2, R3\nBEQ R1, R5, 5\nADD R7, R7, R7\nMUL R8, R8, R8\nSUB R9, R1, R2",
		}

		It("should commit in program order", func() {
			for _, src := range programs {
				engine = tomasulo.NewEngine()
				rec := &eventRecorder{}
				engine.AcceptHook(rec)
				load(src)

				runChecked(engine)

				commits := rec.kinds(tomasulo.HookPosCommit)
				Expect(commits).NotTo(BeEmpty())

				last := -1
				for _, evt := range commits {
					Expect(evt.Entry).To(BeNumerically(">", last))
					Expect(evt.Inst).To(Equal(engine.Program()[evt.Entry].String()))
					last = evt.Entry
				}
			}
		})

		It("should keep the timeline of a re-issued instruction to its latest attempt", func() {
			engine = tomasulo.NewEngine()
			load("ADD R1, R1, R2\nSUB R3, R3, R3\nBEQ R0, R0, 1")

			reissued := false
			for !engine.Complete() {
				engine.Step()

				for _, inst := range engine.Instructions() {
					if inst.Reissues > 0 {
						reissued = true
					}
					if inst.CommitCycle >= 0 {
						Expect(inst.CommitCycle).To(BeNumerically(">", inst.WriteCycle), inst.Text)
						Expect(inst.WriteCycle).To(BeNumerically(">", inst.IssueCycle), inst.Text)
					}
					if inst.ExecCycle >= 0 {
						Expect(inst.ExecCycle).To(BeNumerically(">", inst.IssueCycle), inst.Text)
					}
					if inst.Status == tomasulo.StatusCommitted {
						Expect(inst.CommitCycle).To(BeNumerically(">=", 0), inst.Text)
					}
				}
			}

			Expect(reissued).To(BeTrue())
			Expect(engine.TimedOut()).To(BeTrue())
		})

		It("should keep IPC within bounds", func() {
			for _, src := range programs {
				engine = tomasulo.NewEngine()
				load(src)
				engine.Run()

				bound := 1.0 / float64(engine.LatencyTable().MinLatency())
				Expect(engine.IPC()).To(BeNumerically(">", 0))
				Expect(engine.IPC()).To(BeNumerically("<=", bound))
			}
		})

		It("should match the in-order emulator on straight-line code", func() {
			for _, src := range programs {
				engine = tomasulo.NewEngine()
				load(src)
				engine.Run()

				ref := emu.NewEmulator(insts.MustParse(src))
				Expect(ref.Run()).To(Succeed())

				Expect(engine.Registers().Public).To(Equal(ref.RegFile().Public))
				Expect(engine.MemoryState().Diff(ref.Memory())).To(BeEmpty())
			}
		})
	})

	Describe("hooks", func() {
		var (
			mockCtrl *gomock.Controller
			hook     *MockHook
		)

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
			hook = NewMockHook(mockCtrl)
			engine.AcceptHook(hook)
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should publish the load line", func() {
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				Expect(ctx.Domain).To(BeIdenticalTo(engine))
				Expect(ctx.Pos).To(BeIdenticalTo(tomasulo.HookPosLoad))

				evt := ctx.Item.(tomasulo.Event)
				Expect(evt.Cycle).To(Equal(0))
				Expect(evt.Kind).To(Equal("Load"))
				Expect(evt.Text).To(Equal("Loaded 1 instructions from test"))
			})

			load("ADD R1, R2, R3")
		})

		It("should publish one event per log line", func() {
			var positions []*sim.HookPos
			var texts []string
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				positions = append(positions, ctx.Pos)
				texts = append(texts, ctx.Item.(tomasulo.Event).Text)
			}).AnyTimes()

			load("ADD R1, R2, R3")
			engine.Run()

			Expect(texts).To(Equal(engine.Log()))
			Expect(positions).To(ContainElements(
				tomasulo.HookPosCycleStart,
				tomasulo.HookPosIssue,
				tomasulo.HookPosBroadcast,
				tomasulo.HookPosCommit,
				tomasulo.HookPosComplete,
			))
			Expect(positions[len(positions)-1]).To(BeIdenticalTo(tomasulo.HookPosComplete))
		})

		It("should tag issue events with the station and slot", func() {
			var issues []tomasulo.Event
			hook.EXPECT().Func(gomock.Any()).Do(func(ctx sim.HookCtx) {
				if ctx.Pos == tomasulo.HookPosIssue {
					issues = append(issues, ctx.Item.(tomasulo.Event))
				}
			}).AnyTimes()

			load("ADD R1, R2, R3\nMUL R4, R1, R1")
			engine.Step()
			engine.Step()

			Expect(issues).To(HaveLen(2))
			Expect(issues[0].Cycle).To(Equal(1))
			Expect(issues[0].Station).To(Equal("Add1"))
			Expect(issues[0].ROBIndex).To(Equal(0))
			Expect(issues[0].Phys).To(Equal(emu.PhysReg(0)))
			Expect(issues[1].Cycle).To(Equal(2))
			Expect(issues[1].Station).To(Equal("Mult1"))
			Expect(issues[1].ROBIndex).To(Equal(1))
		})
	})
})
