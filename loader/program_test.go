package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/tomasim/insts"
	"github.com/sarchlab/tomasim/loader"
)

var _ = Describe("Program Loader", func() {
	var tempDir string

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "program-loader-test")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		Context("with a valid program", func() {
			var path string

			BeforeEach(func() {
				path = write("sum.asm", `# sum two registers
ADD R1, R2, R3

STORE R1, 0(R4)   ; keep it
BEQ R1, R1, 4
`)
			})

			It("should load without error", func() {
				prog, err := loader.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Len()).To(Equal(3))
			})

			It("should record where the program came from", func() {
				prog, _ := loader.Load(path)
				Expect(prog.Path).To(Equal(path))
				Expect(prog.Name).To(Equal("sum.asm"))
			})

			It("should number instructions from 1", func() {
				prog, _ := loader.Load(path)
				Expect(prog.Instructions[0].Line).To(Equal(1))
				Expect(prog.Instructions[2].Line).To(Equal(3))
				Expect(prog.Instructions[1].Op).To(Equal(insts.OpSTORE))
			})

			It("should render a listing", func() {
				prog, _ := loader.Load(path)
				Expect(prog.Listing()).To(Equal(
					"  1: ADD R1, R2, R3\n  2: STORE R1, 0(R4)\n  3: BEQ R1, R1, 4\n"))
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load(filepath.Join(tempDir, "missing.asm"))
				Expect(err).To(HaveOccurred())
				Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
			})

			It("should return error for an empty file", func() {
				_, err := loader.Load(write("empty.asm", "# nothing\n"))
				Expect(err).To(MatchError(insts.ErrEmpty))
			})

			It("should fail the whole file on one bad line", func() {
				_, err := loader.Load(write("bad.asm", "ADD R1, R2, R3\nJMP 4\n"))
				Expect(err).To(MatchError(insts.ErrUnknownOp))

				var perr *insts.ParseError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(perr.Line).To(Equal(2))
			})
		})

		It("should validate registers against the machine", func() {
			path := write("wide.asm", "ADD R8, R1, R2\n")

			_, err := loader.LoadWithOptions(path, insts.ParseOptions{NumRegisters: 8})
			Expect(err).To(MatchError(insts.ErrBadRegister))

			_, err = loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("LoadReader", func() {
		It("should name the program after the stream", func() {
			prog, err := loader.LoadReader(strings.NewReader("MUL R1, R1, R1"), "stdin",
				insts.DefaultParseOptions())
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Name).To(Equal("stdin"))
			Expect(prog.Path).To(BeEmpty())
		})
	})
})
