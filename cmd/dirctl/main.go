// dirctl is a terminal front end for the directory. It reads through the
// Data Access Client and its cache, and renders the listing with the same
// loading, error, empty and result states the web front end shows.
//
// Commands:
//
//	dirctl list [--query q] [--category c]... [--watch]
//	dirctl categories [--search s] [--category c]...
//	dirctl create --name n --category c [--description d] [--website w] [--country c]
//	dirctl submit --file submission.yaml
//	dirctl version
//
// Every command accepts --server to override client.base_url and --plain to
// disable colors. Configuration comes from CONFIG_PATH and PHUB_CLIENT_*.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/philanthrohub/directory/internal/api"
	"github.com/philanthrohub/directory/internal/browse"
	"github.com/philanthrohub/directory/internal/client"
	"github.com/philanthrohub/directory/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := run(ctx, os.Args[1:], cfg.Client, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one dirctl subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *env, args []string) error
}

var commands = []command{
	{name: "list", summary: "list organizations, optionally filtered", run: runList},
	{name: "categories", summary: "list categories present in the directory", run: runCategories},
	{name: "create", summary: "add a verified organization directly", run: runCreate},
	{name: "submit", summary: "submit a wizard application from a YAML file", run: runSubmit},
}

// env carries the process surroundings shared by all commands.
type env struct {
	cfg    config.ClientConfig
	stdout io.Writer
	stderr io.Writer

	server string
	plain  bool
}

// flags returns a flag set with the options every command accepts.
func (e *env) flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("dirctl "+name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.server, "server", e.cfg.BaseURL, "directory server base URL")
	fs.BoolVar(&e.plain, "plain", false, "disable colors")
	return fs
}

func (e *env) client() *client.Client {
	cfg := e.cfg
	cfg.BaseURL = e.server
	return client.NewFromConfig(cfg)
}

// cachedClient reads through a cache that the command's own writes invalidate.
func (e *env) cachedClient() *client.CachedClient {
	return client.NewCachedClient(e.client(), e.cfg.PollInterval, e.cfg.StaleTime)
}

func (e *env) renderer() *browse.Renderer {
	if e.plain {
		return browse.NewPlainRenderer(e.stdout)
	}
	return browse.NewRenderer(e.stdout, browse.DefaultTheme)
}

func run(ctx context.Context, args []string, cfg config.ClientConfig, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return fmt.Errorf("no command given")
	}

	name := args[0]
	switch name {
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "version", "--version":
		fmt.Fprintf(stdout, "dirctl v%s\n", api.Version)
		return nil
	}

	for _, cmd := range commands {
		if cmd.name != name {
			continue
		}
		e := &env{cfg: cfg, stdout: stdout, stderr: stderr}
		err := cmd.run(ctx, e, args[1:])
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	printUsage(stderr)
	return fmt.Errorf("unknown command: %s", name)
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: dirctl <command> [flags]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(w, "  %-12s %s\n", "version", "print the version")
	fmt.Fprintf(w, "\nRun 'dirctl <command> --help' for command flags.\n")
}
