// Package main implements the clox command: it runs programs with the
// tree-walking interpreter, compiles them to LLVM IR, and hosts a REPL.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/you-not-fish/clox/internal/codegen"
	"github.com/you-not-fish/clox/internal/config"
	"github.com/you-not-fish/clox/internal/diag"
	"github.com/you-not-fish/clox/internal/interp"
	"github.com/you-not-fish/clox/internal/ir"
	"github.com/you-not-fish/clox/internal/ir/passes"
	"github.com/you-not-fish/clox/internal/syntax"
)

// Command-line flags
var (
	emitTokens = flag.Bool("emit-tokens", false, "Output token stream")
	emitAST    = flag.Bool("emit-ast", false, "Output AST")
	astFormat  = flag.String("ast-format", "text", "AST output format (text, json, dot or source)")
	emitIR     = flag.Bool("emit-ir", false, "Output IR after the pass pipeline")
	emitLL     = flag.Bool("emit-ll", false, "Output LLVM IR")
	compile    = flag.Bool("compile", false, "Build a native executable with clang")
	output     = flag.String("o", "", "Output file")
	passList   = flag.String("passes", "", "Comma-separated passes to run (default all, \"none\" for none)")
	dumpFunc   = flag.String("dump-func", "", "Only dump specific function")
	dumpBefore = flag.String("dump-before", "", "Dump IR before pass (name or \"*\")")
	dumpAfter  = flag.String("dump-after", "", "Dump IR after pass (name or \"*\")")
	configPath = flag.String("config", "", "Configuration file (default ./"+config.FileName+" if present)")
	trace      = flag.Bool("trace", false, "Output timing trace")
	doctor     = flag.Bool("doctor", false, "Check toolchain")
	version    = flag.Bool("version", false, "Print version")

	allowRedefine = flag.Bool("allow-redefine", false, "Allow redeclaring a name in the same scope")
	truthiness    = flag.String("truthiness", "", "Double truthiness policy (nonzero or legacy-inverted)")
	missingReturn = flag.String("missing-return", "", "Missing return policy (default or error)")
	maxCallDepth  = flag.Int("max-call-depth", 0, "Interpreter recursion limit (0 keeps the configured value)")
)

// Version information
const Version = "0.1.0-dev"

const historyFile = ".clox_history"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "clox %s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: clox [options] [file.clox]\n\n")
		fmt.Fprintf(os.Stderr, "Without a file, clox starts a REPL.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *version {
		fmt.Printf("clox version %s\n", Version)
		fmt.Printf("go version %s\n", runtime.Version())
		os.Exit(0)
	}

	if *doctor {
		os.Exit(runDoctor())
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		os.Exit(runREPL(cfg))
	}
	filename := args[0]

	switch {
	case *emitTokens:
		os.Exit(runEmitTokens(filename))
	case *emitAST:
		os.Exit(runEmitAST(filename))
	case *emitIR:
		os.Exit(runEmitIR(filename, cfg))
	case *emitLL:
		os.Exit(runEmitLL(filename, cfg))
	case *compile:
		os.Exit(runCompile(filename, cfg))
	}
	os.Exit(runFile(filename, cfg))
}

// loadConfig reads the configuration file and applies the flags that
// were set explicitly on top of it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadDefault(".")
	}
	if err != nil {
		return nil, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "allow-redefine":
			cfg.AllowRedefine = *allowRedefine
		case "truthiness":
			cfg.Truthiness = config.Truthiness(*truthiness)
		case "missing-return":
			cfg.MissingReturn = config.MissingReturn(*missingReturn)
		case "max-call-depth":
			cfg.MaxCallDepth = *maxCallDepth
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// tracer prints the duration of each phase to stderr when -trace is set.
type tracer struct {
	start time.Time
}

func newTracer() *tracer {
	return &tracer{start: time.Now()}
}

func (t *tracer) phase(name string) {
	if !*trace {
		return
	}
	now := time.Now()
	fmt.Fprintf(os.Stderr, "[trace] %-8s %v\n", name, now.Sub(t.start))
	t.start = now
}

// parseFile reads and parses filename, reporting errors to stderr.
func parseFile(filename string, tr *tracer) (*syntax.File, bool) {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, false
	}
	f, err := syntax.Parse(src)
	tr.phase("parse")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}
	return f, true
}

// runFile interprets filename.
func runFile(filename string, cfg *config.Config) int {
	tr := newTracer()
	f, ok := parseFile(filename, tr)
	if !ok {
		return 1
	}
	_, err := interp.New(cfg, os.Stdout).Run(f)
	tr.phase("run")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// runEmitTokens scans the input file and prints all tokens.
func runEmitTokens(filename string) int {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	toks, err := syntax.Scan(src)
	for _, tok := range toks {
		fmt.Println(tok)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// runEmitAST parses the input file and outputs the AST.
func runEmitAST(filename string) int {
	f, ok := parseFile(filename, newTracer())
	if !ok {
		return 1
	}

	switch *astFormat {
	case "json":
		if err := syntax.FprintJSON(os.Stdout, f); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	case "dot":
		if err := syntax.FprintDot(os.Stdout, f); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
	case "source":
		fmt.Print(syntax.Format(f))
	case "text":
		syntax.Fprint(os.Stdout, f)
	default:
		fmt.Fprintf(os.Stderr, "error: unknown AST format %q\n", *astFormat)
		return 1
	}
	return 0
}

// pipeline returns the passes selected by -passes.
func pipeline() ([]passes.Pass, error) {
	switch *passList {
	case "":
		return passes.Default, nil
	case "none":
		return nil, nil
	}
	var ps []passes.Pass
	for _, name := range strings.Split(*passList, ",") {
		p, ok := passes.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown pass %q", name)
		}
		ps = append(ps, p)
	}
	return ps, nil
}

// buildModule lowers filename and runs the pass pipeline over it.
func buildModule(filename string, cfg *config.Config) (*ir.Module, bool) {
	tr := newTracer()
	f, ok := parseFile(filename, tr)
	if !ok {
		return nil, false
	}

	m, err := ir.Lower(f, cfg)
	tr.phase("lower")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}

	ps, err := pipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil, false
	}
	passCfg := passes.Config{
		DumpBefore: *dumpBefore,
		DumpAfter:  *dumpAfter,
		Verify:     cfg.VerifyIR,
		DumpFunc:   *dumpFunc,
	}
	if err := passes.RunModule(m, ps, passCfg); err != nil {
		fmt.Fprintf(os.Stderr, "pass pipeline failed:\n%v\n", err)
		return nil, false
	}
	tr.phase("passes")
	return m, true
}

// runEmitIR prints the IR of filename after the pass pipeline.
func runEmitIR(filename string, cfg *config.Config) int {
	m, ok := buildModule(filename, cfg)
	if !ok {
		return 1
	}
	if *dumpFunc != "" {
		f := m.Func(*dumpFunc)
		if f == nil {
			fmt.Fprintf(os.Stderr, "error: no function %s\n", *dumpFunc)
			return 1
		}
		ir.Fprint(os.Stdout, f)
		return 0
	}
	ir.FprintModule(os.Stdout, m)
	return 0
}

// runEmitLL writes the LLVM IR of filename to -o, or to stdout.
func runEmitLL(filename string, cfg *config.Config) int {
	m, ok := buildModule(filename, cfg)
	if !ok {
		return 1
	}
	var buf bytes.Buffer
	if err := codegen.Generate(&buf, m); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if *output == "" {
		_, _ = os.Stdout.Write(buf.Bytes())
		return 0
	}
	if err := os.WriteFile(*output, buf.Bytes(), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// runCompile builds a native executable from filename with clang.
func runCompile(filename string, cfg *config.Config) int {
	m, ok := buildModule(filename, cfg)
	if !ok {
		return 1
	}

	tmpDir, err := os.MkdirTemp("", "clox")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmpDir)

	llFile := filepath.Join(tmpDir, "output.ll")
	out, err := os.Create(llFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	err = codegen.Generate(out, m)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	binFile := *output
	if binFile == "" {
		binFile = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}
	tr := newTracer()
	cmd := exec.Command("clang", llFile, "-o", binFile)
	if msg, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "clang failed:\n%s\n%v\n", msg, err)
		return 1
	}
	tr.phase("clang")
	return 0
}

// runREPL reads programs line by line, keeping definitions between
// inputs. An input that stops inside an unclosed construct continues on
// the next line. A lone expression statement prints its value.
func runREPL(cfg *config.Config) int {
	fmt.Printf("clox %s (type :quit to exit)\n", Version)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	in := interp.New(cfg, os.Stdout)
	for {
		src, ok := readInput(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		switch strings.TrimSpace(src) {
		case "":
			continue
		case ":quit":
			return 0
		case ":globals":
			fmt.Println(strings.Join(in.Globals(), " "))
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		f, err := syntax.Parse([]byte(src))
		if err == nil {
			err = evalInput(in, f, os.Stdout)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// readInput prompts until the collected lines parse or fail for a reason
// other than running out of input. It returns false at end of input.
func readInput(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := "clox> "
		if b.Len() > 0 {
			prompt = "....> "
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := syntax.Parse([]byte(src)); err != nil && diag.Incomplete(err) {
			continue
		}
		return src, true
	}
}

// evalInput executes one REPL input. A single expression statement has
// its value printed unless it is void.
func evalInput(in *interp.Interpreter, f *syntax.File, w io.Writer) error {
	if len(f.Decls) == 1 {
		if s, ok := f.Decls[0].(*syntax.ExprStmt); ok {
			v, err := in.Eval(s.X)
			if err != nil {
				return err
			}
			if v != nil {
				fmt.Fprintln(w, v)
			}
			return nil
		}
	}
	return in.Exec(f)
}

// runDoctor checks the toolchain and returns an exit code.
func runDoctor() int {
	fmt.Println("clox Toolchain Doctor")
	fmt.Println("=====================")
	fmt.Println()

	fmt.Printf("Go:      %s ✓\n", runtime.Version())

	clangVersion, clangOk := checkTool("clang", "--version")
	fmt.Printf("clang:   %s", clangVersion)
	if !clangOk {
		fmt.Println(" ✗ (not found; needed for -compile)")
		return 1
	}
	fmt.Println(" ✓")
	return 0
}

// checkTool runs a tool with the given arguments and returns the first line of output.
func checkTool(name string, args ...string) (string, bool) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", false
	}
	line := strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0])
	if len(line) > 60 {
		line = line[:57] + "..."
	}
	return line, true
}
