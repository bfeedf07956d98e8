// Command starctl administers a go-star database: migrations, seeding,
// user and audit inspection, one-off AI runs and a metrics endpoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-star/pkg/types"
	"github.com/joho/godotenv"
)

type subcommand struct {
	name    string
	usage   string
	// migrate commands stop after the schema is in place and never build the
	// AI provider.
	migrate bool
	run     func(ctx context.Context, app *App, args []string) error
}

var subcommands = []subcommand{
	{name: "migrate", usage: "apply database migrations", migrate: true, run: cmdMigrate},
	{name: "seed", usage: "seed the competency catalogue [-file catalogue.yaml]", run: cmdSeed},
	{name: "users", usage: "list users [-actor id] [-toggle-admin id] [-activate id] [-deactivate id]", run: cmdUsers},
	{name: "audit", usage: "show audit entries [-user id] [-action name] [-limit n] [-summary]", run: cmdAudit},
	{name: "evaluate", usage: "evaluate a story: evaluate -user id <story-id>", run: cmdEvaluate},
	{name: "generate", usage: "draft a story: generate -user id -experience text <competency-id>", run: cmdGenerate},
	{name: "gap-analysis", usage: "analyse competency gaps: gap-analysis <user-id>", run: cmdGapAnalysis},
	{name: "serve-metrics", usage: "serve /metrics and /healthz", run: cmdServeMetrics},
}

func main() {
	verbose := flag.Bool("v", false, "debug logging")
	envFile := flag.String("env", ".env", "dotenv file loaded before configuration")
	flag.Usage = usage
	flag.Parse()

	lgr := newRootLogger(*verbose)
	if err := godotenv.Load(*envFile); err != nil {
		lgr.GetLogger("config").Debug("dotenv not loaded", "file", *envFile, "error", err)
	}

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	sub, ok := lookup(flag.Arg(0))
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, lgr, sub, flag.Args()[1:]); err != nil {
		lgr.GetLogger("starctl").Error("command failed", "command", sub.name, "error", types.RichError(err))
		stop()
		os.Exit(1)
	}
}

func execute(ctx context.Context, lgr *glog.BaseLogger, sub subcommand, args []string) error {
	cfg, err := loadConfig(ctx, lgr)
	if err != nil {
		return err
	}
	app := &App{config: cfg, logger: lgr}
	if err := WithPersistence(ctx, app); err != nil {
		return err
	}
	defer app.Close()

	if err := runMigrations(ctx, app); err != nil {
		return err
	}
	if sub.migrate {
		return sub.run(ctx, app, args)
	}
	if err := WithService(ctx, app); err != nil {
		return err
	}
	return sub.run(ctx, app, args)
}

func lookup(name string) (subcommand, bool) {
	for _, sub := range subcommands {
		if sub.name == name {
			return sub, true
		}
	}
	return subcommand{}, false
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "usage: starctl [-v] [-env file] <command> [flags]\n\ncommands:\n")
	for _, sub := range subcommands {
		fmt.Fprintf(out, "  %-14s %s\n", sub.name, sub.usage)
	}
}

var errUsage = errors.New("starctl: invalid arguments")
