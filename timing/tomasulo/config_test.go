package tomasulo_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/timing/tomasulo"
)

var _ = Describe("Config", func() {
	It("should describe the default machine", func() {
		config := tomasulo.DefaultConfig()

		Expect(config.ROBSize).To(Equal(8))
		Expect(config.StationCount(insts.ClassArith)).To(Equal(3))
		Expect(config.StationCount(insts.ClassBranch)).To(Equal(3))
		Expect(config.PublicRegisters).To(Equal(17))
		Expect(config.PhysicalRegisters).To(Equal(33))
		Expect(config.MemorySize).To(Equal(1024))
		Expect(config.MaxCycles).To(Equal(100))
		Expect(config.MaxReissues).To(Equal(50))
		Expect(config.RunCeiling).To(Equal(10000))
		Expect(config.Validate()).To(Succeed())
		Expect(config.ParseOptions().NumRegisters).To(Equal(17))
	})

	It("should reject unusable machines", func() {
		config := tomasulo.DefaultConfig()
		config.ROBSize = 0
		Expect(config.Validate()).To(HaveOccurred())

		config = tomasulo.DefaultConfig()
		config.MulDivStations = 0
		Expect(config.Validate()).To(HaveOccurred())

		config = tomasulo.DefaultConfig()
		config.MaxCycles = -1
		Expect(config.Validate()).To(HaveOccurred())
	})

	It("should clone independently", func() {
		config := tomasulo.DefaultConfig()
		clone := config.Clone()
		clone.ROBSize = 16

		Expect(config.ROBSize).To(Equal(8))
	})

	It("should round-trip through a JSON file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "machine.json")

		config := tomasulo.DefaultConfig()
		config.ROBSize = 12
		config.MaxCycles = 500
		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := tomasulo.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for missing keys", func() {
		path := filepath.Join(GinkgoT().TempDir(), "partial.json")
		Expect(os.WriteFile(path, []byte(`{"rob_size": 4}`), 0644)).To(Succeed())

		loaded, err := tomasulo.LoadConfig(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.ROBSize).To(Equal(4))
		Expect(loaded.ArithStations).To(Equal(3))
	})

	It("should report unreadable and malformed files", func() {
		_, err := tomasulo.LoadConfig("/nonexistent/machine.json")
		Expect(err).To(HaveOccurred())

		path := filepath.Join(GinkgoT().TempDir(), "bad.json")
		Expect(os.WriteFile(path, []byte(`{rob_size`), 0644)).To(Succeed())
		_, err = tomasulo.LoadConfig(path)
		Expect(err).To(HaveOccurred())
	})
})
