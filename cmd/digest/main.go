package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/five82/digest/internal/app"
	"github.com/five82/digest/internal/config"
	"github.com/five82/digest/internal/identity"
)

// Opts with all CLI options
type Opts struct {
	APIURL string `long:"api-url" env:"DIGEST_API_URL" description:"backend base URL, overrides config and NEXT_PUBLIC_API_URL"`
	Config string `short:"c" long:"config" env:"DIGEST_CONFIG" description:"config file (default ~/.config/digest/config.toml)"`
	Prefs  string `long:"prefs" env:"DIGEST_PREFS" description:"dashboard preferences file"`
	Poll   int    `long:"poll" env:"DIGEST_POLL" description:"health poll interval in seconds"`
	Route  string `long:"route" description:"dashboard start route, e.g. /history"`

	Dash       DashCmd       `command:"dash" description:"open the dashboard (default)"`
	Login      LoginCmd      `command:"login" description:"sign in with Google"`
	Logout     LogoutCmd     `command:"logout" description:"end the stored session"`
	WhoAmI     WhoAmICmd     `command:"whoami" description:"show the signed-in user"`
	Sub        SubCmd        `command:"sub" description:"inspect or change the subscription"`
	History    HistoryCmd    `command:"history" description:"list delivered articles"`
	Stats      StatsCmd      `command:"stats" description:"show delivery statistics"`
	QuickSetup QuickSetupCmd `command:"quick-setup" description:"create a subscription from an interest template"`
	Tags       TagsCmd       `command:"tags" description:"keyword tag tools"`
	Status     StatusCmd     `command:"status" description:"show backend health and client settings"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	os.Exit(run())
}

func run() int {
	var opts Opts
	c := &cli{opts: &opts, out: os.Stdout}
	opts.bind(c)

	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cmd == nil || opts.Version {
			return nil
		}
		if _, ok := cmd.(*DashCmd); !ok {
			c.setupLog(false)
		}
		return cmd.Execute(args)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	c.ctx = ctx

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				return 0
			}
			return 1
		}
		fmt.Fprintf(os.Stderr, "digest: %v\n", err)
		return 1
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		return 0
	}

	// no command given: open the dashboard
	if parser.Active == nil {
		if err := opts.Dash.Execute(nil); err != nil {
			fmt.Fprintf(os.Stderr, "digest: %v\n", err)
			return 1
		}
	}
	return 0
}

// cli carries what every command needs besides its own flags.
type cli struct {
	opts *Opts
	ctx  context.Context
	out  io.Writer
}

func (o *Opts) bind(c *cli) {
	o.Dash.cli = c
	o.Login.cli = c
	o.Logout.cli = c
	o.WhoAmI.cli = c
	o.Sub.Show.cli = c
	o.Sub.Toggle.cli = c
	o.Sub.Delete.cli = c
	o.History.cli = c
	o.Stats.cli = c
	o.QuickSetup.cli = c
	o.Tags.Preview.cli = c
	o.Status.cli = c
}

func (c *cli) appOptions() app.Options {
	return app.Options{
		ConfigPath: c.opts.Config,
		PrefsPath:  c.opts.Prefs,
		APIURL:     c.opts.APIURL,
		PollEvery:  c.opts.Poll,
		StartRoute: c.opts.Route,
		UserAgent:  "digest-cli/" + revision,
		OpenURL:    openBrowser,
	}
}

// setupLog configures lgr for a one-shot command: errors go to stderr and
// everything else is dropped unless --dbg is set.
func (c *cli) setupLog(toFile bool, secrets ...string) {
	if c.opts.NoColor {
		color.NoColor = true
	}
	setupLog(c.opts.Debug, os.Stderr, toFile, secrets...)
}

func setupLog(dbg bool, w io.Writer, toFile bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(w)}
	switch {
	case toFile && dbg:
		logOpts = []lgr.Option{lgr.Out(w), lgr.Err(w), lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.CallerPkg, lgr.StackTraceOnError}
	case toFile:
		logOpts = []lgr.Option{lgr.Out(w), lgr.Err(w), lgr.Msec, lgr.LevelBraces}
	case dbg:
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	// log files are parsed by the dashboard's log view, keep them free of escape codes
	if !toFile {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}

// openLogFile creates the dashboard log file and its directory.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // path comes from the user's config
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// DashCmd opens the full-screen dashboard.
type DashCmd struct {
	cli *cli
}

// Execute runs the dashboard with logging redirected to the log file.
func (d *DashCmd) Execute(_ []string) error {
	c := d.cli
	if err := config.LoadDotEnv("."); err != nil {
		return err
	}
	cfg, err := config.Load(c.opts.Config)
	if err != nil {
		return err
	}
	f, err := openLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	setupLog(c.opts.Debug, f, true, secretsOf(cfg)...)
	log.Printf("[INFO] starting digest dashboard version %s", revision)

	err = app.Run(c.ctx, c.appOptions())
	if err != nil {
		log.Printf("[ERROR] dashboard failed: %v", err)
		return err
	}
	log.Print("[INFO] shutdown complete")
	return nil
}

// secretsOf lists values lgr must mask: the anon key and the tokens of the
// stored session, when there is one.
func secretsOf(cfg config.Config) []string {
	var out []string
	if cfg.SupabaseAnonKey != "" && !config.IsPlaceholder(cfg.SupabaseAnonKey) {
		out = append(out, cfg.SupabaseAnonKey)
	}
	if cfg.SessionFile == "" {
		return out
	}
	s, err := identity.NewFileStore(cfg.SessionFile).Load()
	if err != nil || s == nil {
		return out
	}
	return append(out, sessionSecrets(s)...)
}

func sessionSecrets(s *identity.Session) []string {
	var out []string
	if s == nil {
		return out
	}
	for _, v := range []string{s.AccessToken, s.RefreshToken} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
