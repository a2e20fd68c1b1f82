package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/benchmarks"
)

var _ = Describe("Benchmark Command", func() {
	var stdout, stderr *bytes.Buffer

	BeforeEach(func() {
		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	It("should run every microbenchmark", func() {
		Expect(execute([]string{}, stdout, stderr)).To(Equal(0))

		for _, b := range benchmarks.GetMicrobenchmarks() {
			Expect(stdout.String()).To(ContainSubstring("Benchmark: " + b.Name))
		}
		Expect(stdout.String()).To(ContainSubstring("=== Summary ==="))
	})

	It("should print CSV for the core set", func() {
		Expect(execute([]string{"--core", "--csv"}, stdout, stderr)).To(Equal(0))

		lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
		Expect(lines).To(HaveLen(4))
	})

	It("should print a JSON report", func() {
		Expect(execute([]string{"--core", "--json"}, stdout, stderr)).To(Equal(0))

		var report benchmarks.BenchmarkReport
		Expect(json.Unmarshal(stdout.Bytes(), &report)).To(Succeed())
		Expect(report.Results).To(HaveLen(3))
	})

	It("should use a machine configuration file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "machine.json")
		Expect(os.WriteFile(path, []byte(`{"rob_size": 16, "max_cycles": 2000}`), 0644)).To(Succeed())

		Expect(execute([]string{"--core", "--machine-config", path}, stdout, stderr)).To(Equal(0))
		Expect(stdout.String()).To(ContainSubstring("ROB size: 16"))
	})

	It("should report data cache statistics", func() {
		Expect(execute([]string{"--core", "--dcache"}, stdout, stderr)).To(Equal(0))
		Expect(stdout.String()).To(ContainSubstring("D-Cache: true"))
		Expect(stdout.String()).To(ContainSubstring("--- D-Cache ---"))
	})

	It("should reject a bad timing configuration", func() {
		Expect(execute([]string{"--timing-config", "/nonexistent.json"}, stdout, stderr)).To(Equal(1))
		Expect(stderr.String()).To(ContainSubstring("loading timing config"))
	})
})
