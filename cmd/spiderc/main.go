// Command spiderc compiles a Wasm MVP-plus binary into a Luau chunk (spec
// §1 "Overview"). It wires internal/wasm, internal/cfg, internal/structurer,
// internal/liveness, internal/rvsdg, internal/luau/emit, and
// internal/luau/print into the pipeline each package's own doc comment
// describes, the same one-command-drives-many-packages shape the teacher's
// own std/compiler/main.go uses for its Go-to-ELF pipeline.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SovereignSatellite/Spider/internal/cfg"
	"github.com/SovereignSatellite/Spider/internal/config"
	"github.com/SovereignSatellite/Spider/internal/diagnostics"
	"github.com/SovereignSatellite/Spider/internal/liveness"
	"github.com/SovereignSatellite/Spider/internal/luau/emit"
	"github.com/SovereignSatellite/Spider/internal/luau/print"
	"github.com/SovereignSatellite/Spider/internal/rvsdg"
	"github.com/SovereignSatellite/Spider/internal/structurer"
	"github.com/SovereignSatellite/Spider/internal/wasm"
)

var log = logrus.New()

type options struct {
	output      string
	localBudget int
	allowSIMD   bool
	verbosity   int
}

func main() {
	opts := &options{}

	root := &cobra.Command{
		Use:   "spiderc <input.wasm>",
		Short: "Compile a Wasm module to a Luau chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVarP(&opts.output, "output", "o", "-", "output path for the generated Luau chunk (- for stdout)")
	flags.IntVar(&opts.localBudget, "local-budget", config.DefaultLocalBudget, "fast-local ceiling per function before spilling to table locals")
	flags.BoolVar(&opts.allowSIMD, "allow-simd", false, "clear the config's SIMD rejection flag (the decoder still rejects SIMD opcodes; spec Non-goals)")
	flags.CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (-v, -vv)")

	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func run(inputPath string, opts *options) error {
	switch opts.verbosity {
	case 0:
		log.SetLevel(logrus.WarnLevel)
	case 1:
		log.SetLevel(logrus.InfoLevel)
	default:
		log.SetLevel(logrus.DebugLevel)
	}

	in, err := openInput(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var copts []config.Option
	copts = append(copts, config.WithLocalBudget(opts.localBudget))
	if opts.allowSIMD {
		copts = append(copts, config.WithoutRejectSIMD())
	}
	cfgVal := config.New(copts...)

	log.WithField("input", inputPath).Debug("decoding module")
	mod, err := wasm.Decode(in)
	if err != nil {
		return diagnostics.Malformed("decode", err)
	}
	log.WithFields(logrus.Fields{
		"functions": len(mod.Functions),
		"imports":   len(mod.Imports),
		"exports":   len(mod.Exports),
	}).Info("decoded module")

	if cfgVal.RejectSIMD {
		log.Debug("SIMD rejection enabled")
	}

	numFuncImports := mod.NumFuncImports()
	funcs := make([]*rvsdg.Graph, len(mod.Functions))

	for i := range mod.Functions {
		idx := uint32(numFuncImports + i)
		log.WithField("func", idx).Debug("building control-flow graph")

		fn, err := cfg.Build(mod, idx)
		if err != nil {
			return diagnostics.Wrap(fmt.Sprintf("cfg[%d]", idx), err)
		}

		g := structurer.NewGraph(fn)
		s := structurer.New()
		s.Run(g, fn.Entry, fn.Exit)

		live := liveness.Compute(fn, fn.ResultCount)
		deps := liveness.Track(fn.Instructions)

		loops := repeatsOf(s)

		log.WithFields(logrus.Fields{
			"func":  idx,
			"loops": len(loops),
			"deps":  len(deps),
		}).Debug("lowering to data-flow graph")

		lambda := rvsdg.BuildLambda(fn, rvsdg.FunctionInputs{
			Dependencies: deps,
			Loops:        loops,
			Live:         live,
		})
		rvsdg.Normalize(lambda)
		funcs[i] = lambda
	}

	log.Debug("lowering module-level resources to Omega")
	omega := rvsdg.BuildOmega(mod)
	rvsdg.Normalize(omega)

	astMod := emit.Module(mod, omega, funcs, cfgVal.LocalBudget)
	luauSrc := print.Module(astMod)

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.WriteString(out, luauSrc); err != nil {
		return diagnostics.Wrap("write output", err)
	}

	log.WithField("output", opts.output).Info("compiled")
	return nil
}

// repeatsOf translates the structurer's own RepeatInfo records into the
// rvsdg package's LoopInfo shape, keeping internal/rvsdg free of any import
// of internal/structurer (see rvsdg.LoopInfo's doc comment).
func repeatsOf(s *structurer.Structurer) []rvsdg.LoopInfo {
	infos := s.Repeats()
	loops := make([]rvsdg.LoopInfo, len(infos))
	for i, info := range infos {
		loops[i] = rvsdg.LoopInfo{Entry: info.Entry, Latch: info.Latch}
	}
	sort.Slice(loops, func(i, j int) bool { return loops[i].Entry < loops[j].Entry })
	return loops
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, diagnostics.Wrap("open input", err)
	}
	return f, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, diagnostics.Wrap("open output", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// exitCode maps a diagnostics.Kind to the process exit status spec §7
// assigns it, so scripts invoking spiderc can branch on failure mode
// without parsing stderr.
func exitCode(err error) int {
	switch {
	case diagnostics.Is(err, diagnostics.KindMalformedInput):
		log.WithError(err).Error("malformed input")
		return 2
	case diagnostics.Is(err, diagnostics.KindUnsupportedFeature):
		log.WithError(err).Error("unsupported feature")
		return 3
	case diagnostics.Is(err, diagnostics.KindInvariant):
		log.WithError(err).Error("internal invariant violation")
		return 4
	default:
		log.WithError(err).Error("compilation failed")
		return 1
	}
}
