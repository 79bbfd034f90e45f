// Package cli implements the postcache maintenance command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/eunmann/postcache/internal/logctx"
	"github.com/eunmann/postcache/pkg/logging"
	"github.com/eunmann/postcache/pkg/postcache"
)

// EnvDB names the environment variable used when --db is not given.
const EnvDB = "POSTCACHE_DB"

const usage = `usage: postcache <command> [options]
commands: init, drop, import, remove, list, export, restore`

// Run executes the CLI with the given arguments, writing results to stdout.
func Run(args []string) error {
	return RunWithOutput(args, os.Stdout)
}

// RunWithOutput is Run with an explicit output writer.
func RunWithOutput(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "init":
		return runInit(rest, out)
	case "drop":
		return runDrop(rest, out)
	case "import":
		return runImport(rest, out)
	case "remove":
		return runRemove(rest, out)
	case "list":
		return runList(rest, out)
	case "export":
		return runExport(rest, out)
	case "restore":
		return runRestore(rest, out)
	default:
		return fmt.Errorf("unknown command: %s\n%s", cmd, usage)
	}
}

// commonOptions are the flags shared by every command.
type commonOptions struct {
	db          string
	envFile     string
	debug       bool
	human       bool
	metricsFile string
}

func addCommonFlags(fs *flag.FlagSet) *commonOptions {
	o := &commonOptions{}
	fs.StringVar(&o.db, "db", "", "path to the cache database (default $"+EnvDB+")")
	fs.StringVar(&o.envFile, "env-file", "", "load environment variables from this .env file")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.human, "human", false, "human-friendly console logs instead of JSON")
	fs.StringVar(&o.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	return o
}

// resolve applies the env file and fills defaults after flag parsing.
func (o *commonOptions) resolve() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	}
	if o.db == "" {
		o.db = os.Getenv(EnvDB)
	}
	if o.db == "" {
		return errors.New("--db is required (or set " + EnvDB + ")")
	}
	logging.Init(o.debug, o.human)
	return nil
}

// session is an opened cache plus the context and metrics registry of one
// command invocation.
type session struct {
	ctx   context.Context
	cache *postcache.Cache
	reg   *prometheus.Registry
	opts  *commonOptions
}

func openSession(cmd string, o *commonOptions) (*session, error) {
	if err := o.resolve(); err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	if err := postcache.RegisterMetrics(reg); err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	ctx := logctx.WithLogger(context.Background(), logging.WithPhase(cmd))
	cache, err := postcache.Open(ctx, postcache.DefaultConfig(o.db))
	if err != nil {
		return nil, err
	}
	return &session{ctx: ctx, cache: cache, reg: reg, opts: o}, nil
}

// close releases the cache and writes the metrics textfile if requested.
func (s *session) close() error {
	err := s.cache.Close()
	if s.opts.metricsFile != "" {
		if werr := prometheus.WriteToTextfile(s.opts.metricsFile, s.reg); werr != nil && err == nil {
			err = fmt.Errorf("write metrics file: %w", werr)
		}
	}
	return err
}

// accountList collects repeated or comma-separated --account values.
type accountList []int

func (a *accountList) String() string {
	parts := make([]string, len(*a))
	for i, v := range *a {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

func (a *accountList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return fmt.Errorf("invalid account id %q", part)
		}
		*a = append(*a, v)
	}
	return nil
}

func runInit(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession("init", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	if err := s.cache.CreateSchema(s.ctx); err != nil {
		return err
	}
	v, err := s.cache.StoredVersion(s.ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "schema ready at %s (version %d)\n", opts.db, v)
	return nil
}

func runDrop(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("drop", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, err := openSession("drop", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	if err := s.cache.DropSchema(s.ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "dropped cache tables in %s\n", opts.db)
	return nil
}

func runRemove(args []string, out io.Writer) (err error) {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	opts := addCommonFlags(fs)
	var accounts accountList
	fs.Var(&accounts, "account", "account id whose posts are removed (repeatable, comma-separated)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("--account is required")
	}

	s, err := openSession("remove", opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	before, err := s.cache.Posts(s.ctx)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		s.cache.RemovePosts(acc)
	}
	if err := s.cache.Flush(s.ctx); err != nil {
		return err
	}
	after, err := s.cache.Posts(s.ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "removed %d posts for accounts %s\n", len(before)-len(after), accounts.String())
	return nil
}
