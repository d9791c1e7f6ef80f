// quill CLI - runs a quill script through the embedding harness
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/quill/cache"
	"github.com/chazu/quill/driver"
	"github.com/chazu/quill/manifest"
	"github.com/chazu/quill/pkg/variant"
	"github.com/chazu/quill/server"
	"github.com/chazu/quill/vm"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Directory containing quill.toml (default: search upward from the script)")
	strip := flag.Bool("strip", false, "Strip debug info before running")
	call := flag.String("call", "", "Function to call after the first step, e.g. 'greet {} {}'")
	lspMode := flag.Bool("lsp", false, "Run the language server on stdio")
	cachePath := flag.String("cache", "", "SQLite file caching compiled units")
	verbosity := flag.Int("v", 0, "Log verbosity (0 = errors only)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: quill [options] <script> [call args...]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a quill script against the core and host libraries.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  quill hello.quill                              # Run a script\n")
		fmt.Fprintf(os.Stderr, "  quill -call 'describe {} aged {} {}' s.quill fuga 20  # Call a function\n")
		fmt.Fprintf(os.Stderr, "  quill -lsp                                     # Start language server\n")
	}
	flag.Parse()

	commonlog.Configure(*verbosity, nil)

	m, err := loadManifest(*configPath, flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	opts := options(m)

	if *lspMode {
		return runLSP(opts)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: no script given\n")
		flag.Usage()
		return 1
	}

	if *strip {
		opts.Strip = true
	}
	if *call != "" {
		opts.Call = *call
		opts.Args = parseArgs(flag.Args()[1:])
	}
	if *cachePath != "" {
		c, err := cache.Open(*cachePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer c.Close()
		opts.Cache = c
	} else if m != nil && m.CachePath() != "" {
		c, err := cache.Open(m.CachePath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer c.Close()
		opts.Cache = c
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return driver.New(opts).Run(ctx, flag.Arg(0))
}

// loadManifest loads quill.toml from dir, or searches upward from the
// script's directory when dir is empty. A missing manifest is not an error.
func loadManifest(dir, script string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	start := "."
	if script != "" {
		start = filepath.Dir(script)
	}
	return manifest.FindAndLoad(start)
}

func options(m *manifest.Manifest) driver.Options {
	opts := driver.Options{
		Params: vm.Params{EnableDebugInfo: true},
	}
	if m == nil {
		return opts
	}
	opts.Suffix = m.Script.Suffix
	opts.Libraries = m.Script.Libraries
	opts.Strip = m.Script.Strip
	opts.Call = m.Script.Call
	for _, a := range m.Script.Args {
		v, err := variant.FromAny(a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: ignoring call argument %v: %v\n", a, err)
			continue
		}
		opts.Args = append(opts.Args, v)
	}
	opts.Params = vm.Params{
		EnableLogging:   m.Engine.Logging,
		LogBytecode:     m.Engine.LogBytecode,
		LogSymbols:      m.Engine.LogSymbols,
		EnableDebugInfo: m.Engine.DebugInfo,
		AllocBlockSize:  m.Engine.BlockSize,
	}
	return opts
}

// parseArgs turns command-line call arguments into values: integers and
// reals when they parse as such, strings otherwise.
func parseArgs(args []string) []variant.Variant {
	out := make([]variant.Variant, len(args))
	for i, a := range args {
		if n, err := strconv.ParseInt(a, 10, 64); err == nil {
			out[i] = variant.Int(n)
		} else if f, err := strconv.ParseFloat(a, 64); err == nil {
			out[i] = variant.Float(f)
		} else {
			out[i] = variant.Str(a)
		}
	}
	return out
}

func runLSP(opts driver.Options) int {
	e, err := vm.Initialize(opts.Params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer e.Shutdown()
	r, err := e.CreateRuntime()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := driver.InstallHost(r, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	libs := opts.Libraries
	if len(libs) == 0 {
		libs = []string{vm.CoreLibrary, driver.HostLibrary}
	}
	if err := server.NewLSP(r, libs).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}
