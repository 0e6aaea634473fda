package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/taskpipe/taskpipe/internal/command"
	"github.com/taskpipe/taskpipe/internal/config"
	"github.com/taskpipe/taskpipe/internal/events"
	"github.com/taskpipe/taskpipe/internal/history"
	"github.com/taskpipe/taskpipe/internal/pipeline"
	"github.com/taskpipe/taskpipe/internal/task"
	"github.com/taskpipe/taskpipe/internal/tui"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type options struct {
	configPath  string
	plain       bool
	list        bool
	watch       bool
	noHistory   bool
	showHistory bool
	initConfig  bool
}

func run(args []string) int {
	fs := flag.NewFlagSet("taskpipe", flag.ContinueOnError)

	var opts options
	fs.StringVarP(&opts.configPath, "config", "c", "", "project config file (default .taskpipe.toml)")
	fs.BoolVar(&opts.plain, "plain", false, "disable the TUI and print interleaved tool output")
	fs.BoolVarP(&opts.list, "list", "l", false, "list declared tasks and exit")
	fs.BoolVarP(&opts.watch, "watch", "w", false, "re-run the task at the configured interval")
	fs.BoolVar(&opts.noHistory, "no-history", false, "do not record this run")
	fs.BoolVar(&opts.showHistory, "history", false, "print recent runs and exit")
	fs.BoolVar(&opts.initConfig, "init", false, "write the default project config and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if opts.initConfig {
		return initConfig(opts.configPath)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 2
	}

	graph, err := cfg.Graph()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building task graph: %v\n", err)
		return 2
	}

	if opts.list {
		listTasks(os.Stdout, graph)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.showHistory {
		return showHistory(ctx, cfg)
	}

	name := pickTask(fs.Args(), cfg)

	pm := command.NewProcessManager()
	go func() {
		<-ctx.Done()
		pm.KillAll()
	}()

	bus := events.NewBus()
	defer bus.Close()

	store, err := openStore(ctx, cfg, opts.noHistory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run history disabled: %v\n", err)
	}
	if store != nil {
		defer store.Close()
	}

	exec := pipeline.New(pipeline.Options{
		Graph:  graph,
		Runner: command.NewProcessRunner(pm),
		Bus:    bus,
		Store:  store,
		Vars:   cfg.Vars(),
		Target: cfg.Target,
	})

	if opts.plain {
		return runPlain(ctx, exec, bus, name, opts.watch, cfg)
	}

	return runTUI(ctx, exec, bus, graph, name, opts.watch, cfg)
}

// runPlain executes without the TUI, echoing tool output lines as they come.
func runPlain(ctx context.Context, exec *pipeline.Executor, bus *events.Bus, name string, watch bool, cfg *config.Config) int {
	sub := bus.SubscribeAll(256)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range sub {
			if line, ok := eventLine(event); ok {
				fmt.Println(line)
			}
		}
	}()

	var err error
	if watch {
		err = pipeline.NewWatcher(exec, cfg.Watch.Interval).Watch(ctx, name)
	} else {
		err = exec.Execute(ctx, name)
	}

	bus.Close()
	<-done

	reportError(os.Stderr, err)
	return pipeline.ExitCode(err)
}

// runTUI executes under the Bubble Tea run view. The pipeline and the TUI run
// concurrently; the run's error decides the exit code.
func runTUI(ctx context.Context, exec *pipeline.Executor, bus *events.Bus, graph *task.Graph, name string, watch bool, cfg *config.Config) int {
	plan, err := graph.Plan(name)
	if err != nil {
		reportError(os.Stderr, err)
		return pipeline.ExitCode(err)
	}

	p := tea.NewProgram(tui.New(bus, plan, watch), tea.WithAltScreen(), tea.WithContext(ctx))

	// Quitting the TUI cancels the pipeline; the pipeline finishing quits
	// the TUI.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var runErr error
	var g errgroup.Group
	g.Go(func() error {
		_, err := p.Run()
		cancelRun()
		return err
	})
	g.Go(func() error {
		if watch {
			runErr = pipeline.NewWatcher(exec, cfg.Watch.Interval).Watch(runCtx, name)
		} else {
			runErr = exec.Execute(runCtx, name)
		}
		// The TUI quits itself on RunFinishedEvent; this is a backstop for
		// event loss.
		p.Quit()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	reportError(os.Stderr, runErr)
	return pipeline.ExitCode(runErr)
}

// pickTask returns the requested task name, falling back to the configured
// default.
func pickTask(args []string, cfg *config.Config) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.DefaultTask
}

// initConfig writes the default configuration as a project config file.
// Refuses to overwrite an existing file.
func initConfig(path string) int {
	if path == "" {
		path = ".taskpipe.toml"
	}

	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "Error: %s already exists\n", path)
		return 2
	}

	if err := config.Save(config.Default(), path); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing config: %v\n", err)
		return 2
	}

	fmt.Printf("Wrote %s\n", path)
	return 0
}

// loadConfig loads the merged configuration, honoring a --config override for
// the project file.
func loadConfig(projectPath string) (*config.Config, error) {
	if projectPath == "" {
		return config.LoadDefault()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	return config.Load(filepath.Join(homeDir, ".taskpipe", "config.toml"), projectPath)
}

// openStore opens the run history store unless disabled by config or flag.
func openStore(ctx context.Context, cfg *config.Config, noHistory bool) (history.Store, error) {
	if noHistory || !cfg.History.Enabled {
		return nil, nil
	}

	path := cfg.History.Path
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(homeDir, ".taskpipe", "history.db")
	}

	store, err := history.NewSQLiteStore(ctx, path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// showHistory prints the most recent runs.
func showHistory(ctx context.Context, cfg *config.Config) int {
	store, err := openStore(ctx, cfg, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening run history: %v\n", err)
		return 2
	}
	if store == nil {
		fmt.Fprintln(os.Stderr, "Run history is disabled in the configuration")
		return 2
	}
	defer store.Close()

	runs, err := store.ListRuns(ctx, 20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
		return 2
	}

	for _, r := range runs {
		status := "ok"
		if r.ExitCode != 0 {
			status = fmt.Sprintf("exit %d", r.ExitCode)
		}
		fmt.Printf("%s  %-8s %-12s %s\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Task, status, r.Target)
	}
	return 0
}

// listTasks prints the declared tasks in declaration order.
func listTasks(w io.Writer, graph *task.Graph) {
	for _, t := range graph.Tasks() {
		line := fmt.Sprintf("%-8s %s", t.Name, t.Description)
		if len(t.Needs) > 0 {
			line += fmt.Sprintf(" (needs %v)", t.Needs)
		}
		fmt.Fprintln(w, line)
	}
}

// eventLine renders one bus event as a plain-mode output line. Only tool
// output is echoed; failures surface through the tools' own stderr and the
// exit code.
func eventLine(event events.Event) (string, bool) {
	if e, ok := event.(events.TaskOutputEvent); ok {
		return e.Line, true
	}
	return "", false
}

// reportError prints an error the user has not already seen. Command failures
// are silent here: the failing tool's output is the diagnostic, and the exit
// code carries the rest.
func reportError(w io.Writer, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	var cmdErr *pipeline.CommandFailedError
	if errors.As(err, &cmdErr) {
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
