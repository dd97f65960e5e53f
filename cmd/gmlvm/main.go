package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gml-vm/internal/config"
	"gml-vm/internal/external"
	"gml-vm/internal/logging"
	"gml-vm/internal/program"
	"gml-vm/internal/project"
	"gml-vm/internal/store"
	"gml-vm/internal/world"

	"github.com/fatih/color"
	"github.com/go-errors/errors"
	"github.com/hashicorp/go-hclog"
	jsoniter "github.com/json-iterator/go"
)

const usage = `Usage: gmlvm <command> [flags] <project.yaml>

Commands:
  run      load the first room and step the game
  check    compile every unit and report diagnostics
  disasm   print the bytecode of every compiled unit
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(ctx, os.Args[2:])
	case "check":
		err = checkCommand(os.Args[2:], os.Stdout)
	case "disasm":
		err = disasmCommand(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}

// common holds the flags every command shares.
type common struct {
	configPath string
	logLevel   string
}

func (c *common) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "gmlvm.yaml", "configuration file")
	fs.StringVar(&c.logLevel, "log-level", "", "override log.level")
}

func (c *common) setup() (*config.Config, hclog.Logger, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	return cfg, logging.New(cfg.Log, nil), nil
}

func projectArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 {
		return "", errors.Errorf("%s expects one project file, got %d arguments", fs.Name(), fs.NArg())
	}
	return fs.Arg(0), nil
}

// load reads and compiles a project. Units that fail to compile are left
// out of the program and reported in the diagnostics.
func load(path string, cache *program.Cache, logger hclog.Logger) (*program.Program, program.Diagnostics, error) {
	p, err := project.Load(path)
	if err != nil {
		return nil, nil, err
	}
	prog, diags := program.CompileAndLoad(p, program.Options{Cache: cache, Logger: logger})
	return prog, diags, nil
}

func printDiagnostics(w io.Writer, diags program.Diagnostics) {
	warn := color.New(color.FgYellow)
	for _, d := range diags {
		warn.Fprintln(w, d.String())
	}
}

func checkCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var c common
	c.bind(fs)
	asJSON := fs.Bool("json", false, "print diagnostics as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := projectArg(fs)
	if err != nil {
		return err
	}
	cfg, logger, err := c.setup()
	if err != nil {
		return err
	}
	cache, err := program.NewCache(cfg.Cache.Units)
	if err != nil {
		return err
	}

	prog, diags, err := load(path, cache, logger)
	if err != nil {
		return err
	}
	if *asJSON {
		if diags == nil {
			diags = program.Diagnostics{}
		}
		data, err := jsoniter.MarshalIndent(diags, "", "  ")
		if err != nil {
			return errors.Wrap(err, 0)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printDiagnostics(out, diags)
	}
	if len(diags) > 0 {
		return errors.Errorf("%d units failed to compile", len(diags))
	}
	if !*asJSON {
		color.New(color.FgGreen).Fprintf(out, "%s: ok, %d unit(s)\n", prog.Name, len(prog.Units()))
	}
	return nil
}

func disasmCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	var c common
	c.bind(fs)
	only := fs.String("unit", "", "print only units whose name contains this text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := projectArg(fs)
	if err != nil {
		return err
	}
	cfg, logger, err := c.setup()
	if err != nil {
		return err
	}
	cache, err := program.NewCache(cfg.Cache.Units)
	if err != nil {
		return err
	}

	prog, diags, err := load(path, cache, logger)
	if err != nil {
		return err
	}
	printDiagnostics(os.Stderr, diags)
	for _, unit := range prog.Units() {
		if *only != "" && !strings.Contains(unit.Name, *only) {
			continue
		}
		unit.Disassemble(out)
		fmt.Fprintln(out)
	}
	return nil
}

type runFlags struct {
	common
	steps int
	draw  bool
	watch bool
	fast  bool
}

func runCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var f runFlags
	f.bind(fs)
	fs.IntVar(&f.steps, "steps", 0, "stop after this many steps; 0 runs until game_end")
	fs.BoolVar(&f.draw, "draw", false, "draw after every step and print the draw calls")
	fs.BoolVar(&f.watch, "watch", false, "restart the game when project files change")
	fs.BoolVar(&f.fast, "fast", false, "step as fast as possible instead of at room_speed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := projectArg(fs)
	if err != nil {
		return err
	}
	cfg, logger, err := f.setup()
	if err != nil {
		return err
	}

	cache, err := program.NewCache(cfg.Cache.Units)
	if err != nil {
		return err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()
	ext := external.New(external.Options{SearchPath: cfg.External.SearchPath, Logger: logger})
	defer ext.Close()

	if !f.watch {
		return play(ctx, path, &f, cfg, cache, st, ext, logger)
	}

	changed := make(chan struct{}, 1)
	go func() {
		err := project.Watch(ctx, path, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
		if err != nil {
			logger.Error("watch stopped", "error", err)
		}
	}()

	for {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- play(runCtx, path, &f, cfg, cache, st, ext, logger) }()

		select {
		case <-ctx.Done():
			cancel()
			<-done
			return nil
		case err := <-done:
			cancel()
			if err != nil {
				color.Red("%v", err)
			}
			logger.Info("waiting for changes")
			select {
			case <-ctx.Done():
				return nil
			case <-changed:
			}
		case <-changed:
			cancel()
			<-done
		}
		hits, misses := cache.Stats()
		logger.Info("project changed, restarting", "cache_hits", hits, "cache_misses", misses)
	}
}

// play runs one game from its first room until it ends, the step limit is
// reached or ctx is done. Cancellation is only checked between steps.
func play(ctx context.Context, path string, f *runFlags, cfg *config.Config, cache *program.Cache, st store.Store, ext *external.Registry, logger hclog.Logger) error {
	prog, diags, err := load(path, cache, logger)
	if err != nil {
		return err
	}
	printDiagnostics(os.Stderr, diags)

	var rec *world.Recorder
	var renderer world.Renderer = world.NoopRenderer{}
	if f.draw {
		rec = &world.Recorder{}
		renderer = rec
	}
	w := world.New(prog, world.Options{
		Logger:   logger,
		Renderer: renderer,
		Debug:    func(message string) { fmt.Println(message) },
		Store:    st,
		External: ext,
		Compat:   cfg.Compat,
		Context:  ctx,
	})
	defer w.Close()

	logger.Info("starting", "project", prog.Name, "run", w.RunID())
	report(logger, w.Start())
	next := time.Now()
	for !w.Ended() && (f.steps == 0 || w.Steps() < f.steps) {
		if !f.fast {
			next = next.Add(time.Second / time.Duration(w.RoomSpeed()))
			select {
			case <-ctx.Done():
			case <-time.After(time.Until(next)):
			}
		}
		if ctx.Err() != nil {
			logger.Info("interrupted", "steps", w.Steps())
			return nil
		}
		report(logger, w.Step())
		if rec != nil {
			report(logger, w.Draw())
			for _, call := range rec.Calls {
				color.New(color.FgCyan).Println(call)
			}
			rec.Reset()
		}
	}
	logger.Info("finished", "steps", w.Steps(), "ended", w.Ended())
	return nil
}

// report prints the events that failed. They never stop the game.
func report(logger hclog.Logger, err error) {
	if err == nil {
		return
	}
	var events *world.EventErrors
	if !errors.As(err, &events) {
		color.Red("%v", err)
		return
	}
	for _, e := range events.Errors {
		color.Red("%v", e)
		if stack, ok := e.Err.(*errors.Error); ok {
			logger.Trace("stack", "trace", stack.ErrorStack())
		}
	}
}
