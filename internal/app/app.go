package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/config"
	"github.com/five82/digest/internal/identity"
	"github.com/five82/digest/internal/prefs"
	"github.com/five82/digest/internal/session"
	"github.com/five82/digest/internal/state"
	"github.com/five82/digest/internal/ui"
)

// Options configure the digest application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/digest/prefs.toml
	EnvDir     string // directory holding .env.local/.env; empty uses the working directory
	APIURL     string // overrides the configured backend URL
	PollEvery  int    // seconds; zero uses default
	StartRoute string
	UserAgent  string
	// OpenURL shows the sign-in page. Nil logs the address instead.
	OpenURL func(string) error
}

// Deps holds everything wired from configuration. CLI commands and the
// dashboard share it.
type Deps struct {
	Config   config.Config
	Client   *api.Client
	Services *api.Services
	Identity *identity.Client // nil when the identity provider is not configured
	Session  *session.Controller
}

// Build loads configuration and wires the request core, identity client and
// session controller. It does not start the session.
func Build(opts Options) (*Deps, error) {
	envDir := opts.EnvDir
	if envDir == "" {
		envDir = "."
	}
	if err := config.LoadDotEnv(envDir); err != nil {
		log.Printf("[WARN] %v", err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}
	for _, w := range cfg.Warnings {
		log.Printf("[WARN] config: %s", w)
	}

	clientOpts := []api.Option{}
	switch cfg.ColdStart {
	case config.ColdStartOn:
		clientOpts = append(clientOpts, api.WithColdStart(true))
	case config.ColdStartOff:
		clientOpts = append(clientOpts, api.WithColdStart(false))
	}
	if opts.UserAgent != "" {
		clientOpts = append(clientOpts, api.WithUserAgent(opts.UserAgent))
	}
	client, err := api.NewClient(cfg.APIURL, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	deps := &Deps{
		Config:   cfg,
		Client:   client,
		Services: api.NewServices(client),
	}

	var provider session.Provider = session.Unconfigured{}
	if cfg.IdentityConfigured() {
		idc, err := identity.NewClient(identity.Options{
			URL:          cfg.SupabaseURL,
			AnonKey:      cfg.SupabaseAnonKey,
			Store:        identity.NewFileStore(cfg.SessionFile),
			CallbackPort: cfg.CallbackPort,
			OpenURL:      opts.OpenURL,
		})
		switch {
		case errors.Is(err, identity.ErrNotConfigured):
			log.Printf("[WARN] identity provider not configured, sign-in disabled")
		case err != nil:
			return nil, fmt.Errorf("init identity client: %w", err)
		default:
			deps.Identity = idc
			provider = idc
		}
	}
	deps.Session = session.New(provider, client)
	return deps, nil
}

// Run boots the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	deps, err := Build(opts)
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Printf("[WARN] load prefs: %v", err)
	}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	startRoute := ui.RouteRoot
	if opts.StartRoute != "" {
		r, ok := ui.ParseRoute(opts.StartRoute)
		if !ok {
			return fmt.Errorf("unknown route %q", opts.StartRoute)
		}
		startRoute = r
	} else if r, ok := ui.ParseRoute(userPrefs.LastRoute); ok && r.Restorable() {
		startRoute = r
	}

	toaster := ui.NewToaster()
	svc := deps.Services
	store := &state.Store{}
	subs := state.NewSubscriptionController(svc.Subscriptions, toaster)
	hist := state.NewHistoryController(svc.History, state.DefaultPageSize)
	guide := state.NewGuidanceController(svc.Guidance, toaster)
	quick := state.NewQuickSetupController(svc.Onboarding, subs, toaster)

	if deps.Identity != nil {
		go deps.Identity.AutoRefresh(ctx)
	}
	go deps.Client.RateLimits().Run(ctx, api.DefaultSweepInterval)

	// Start background poller
	StartPoller(ctx, store, svc.System, interval, deps.Client.ColdStart())

	log.Printf("[INFO] dashboard started, api=%s cold_start=%v", deps.Client.BaseURL(), deps.Client.ColdStart())

	cfg := deps.Config
	return ui.Run(ui.Options{
		Context:       ctx,
		Session:       deps.Session,
		Subscriptions: subs,
		History:       hist,
		Guidance:      guide,
		QuickSetup:    quick,
		Store:         store,
		Toaster:       toaster,
		Config:        &cfg,
		ColdStartHost: deps.Client.ColdStart(),
		PollTick:      time.Second,
		ThemeName:     userPrefs.Theme,
		PrefsPath:     opts.PrefsPath,
		StartRoute:    startRoute,
	})
}
