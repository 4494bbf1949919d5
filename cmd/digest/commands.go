package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/app"
	"github.com/five82/digest/internal/session"
	"github.com/five82/digest/internal/state"
)

const loginTimeout = 5 * time.Minute

var errNotSignedIn = errors.New("not signed in, run `digest login` first")

// connect wires the request core and resolves the stored session.
func (c *cli) connect() (*app.Deps, error) {
	deps, err := app.Build(c.appOptions())
	if err != nil {
		return nil, err
	}
	c.setupLog(false, secretsOf(deps.Config)...)
	if err := deps.Session.Start(c.ctx); err != nil {
		deps.Session.Close()
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	// the session may have been refreshed while resolving
	if s := deps.Session.State().Session; s != nil {
		c.setupLog(false, append(secretsOf(deps.Config), sessionSecrets(s)...)...)
	}
	return deps, nil
}

// authed is connect plus a signed-in check.
func (c *cli) authed() (*app.Deps, error) {
	deps, err := c.connect()
	if err != nil {
		return nil, err
	}
	if !deps.Session.State().Authenticated() {
		deps.Session.Close()
		return nil, errNotSignedIn
	}
	return deps, nil
}

// LoginCmd signs in through the browser.
type LoginCmd struct {
	cli *cli
}

// Execute opens the provider's sign-in page and waits for the redirect.
func (l *LoginCmd) Execute(_ []string) error {
	deps, err := l.cli.connect()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	if deps.Identity == nil {
		return errors.New("identity provider is not configured, set NEXT_PUBLIC_SUPABASE_URL and NEXT_PUBLIC_SUPABASE_ANON_KEY")
	}
	if st := deps.Session.State(); st.Authenticated() && st.User != nil {
		fmt.Fprintf(l.cli.out, "already signed in as %s\n", st.User.DisplayName())
		return nil
	}

	ctx, cancel := context.WithTimeout(l.cli.ctx, loginTimeout)
	defer cancel()
	fmt.Fprintln(l.cli.out, "waiting for the browser sign-in to finish...")
	if err := deps.Session.SignInWithGoogle(ctx); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	st := deps.Session.State()
	if st.User == nil {
		return errors.New("sign in finished without a user")
	}
	fmt.Fprintf(l.cli.out, "signed in as %s\n", st.User.DisplayName())
	return nil
}

// LogoutCmd ends the stored session.
type LogoutCmd struct {
	cli *cli
}

// Execute signs out; it is a no-op when nobody is signed in.
func (l *LogoutCmd) Execute(_ []string) error {
	deps, err := l.cli.connect()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	if !deps.Session.State().Authenticated() {
		fmt.Fprintln(l.cli.out, "not signed in")
		return nil
	}
	if err := deps.Session.SignOut(l.cli.ctx); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	fmt.Fprintln(l.cli.out, "signed out")
	return nil
}

// WhoAmICmd prints the signed-in user.
type WhoAmICmd struct {
	cli *cli
}

// Execute prints the user record.
func (w *WhoAmICmd) Execute(_ []string) error {
	deps, err := w.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()
	return printYAML(w.cli.out, whoami(deps.Session.State()))
}

type userRecord struct {
	ID        string    `yaml:"id"`
	Email     string    `yaml:"email"`
	Name      string    `yaml:"name"`
	ExpiresAt time.Time `yaml:"session_expires_at,omitempty"`
}

func whoami(st session.State) userRecord {
	var rec userRecord
	if st.User != nil {
		rec.ID = st.User.ID
		rec.Email = st.User.Email
		rec.Name = st.User.DisplayName()
	}
	if st.Session != nil {
		rec.ExpiresAt = st.Session.Expiry()
	}
	return rec
}

// SubCmd groups the subscription commands.
type SubCmd struct {
	Show   SubShowCmd   `command:"show" description:"print the subscription"`
	Toggle SubToggleCmd `command:"toggle" description:"pause or resume delivery"`
	Delete SubDeleteCmd `command:"delete" description:"delete the subscription"`
}

// SubShowCmd prints the subscription.
type SubShowCmd struct {
	cli *cli
}

// Execute prints the subscription or a hint when there is none.
func (s *SubShowCmd) Execute(_ []string) error {
	deps, err := s.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	sub, err := deps.Services.Subscriptions.Get(s.cli.ctx)
	if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}
	if sub == nil {
		fmt.Fprintln(s.cli.out, "no subscription yet, try `digest quick-setup`")
		return nil
	}
	return printYAML(s.cli.out, sub)
}

// SubToggleCmd flips the subscription's active flag.
type SubToggleCmd struct {
	cli *cli
}

// Execute toggles delivery and prints the new status.
func (s *SubToggleCmd) Execute(_ []string) error {
	deps, err := s.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	sub, err := deps.Services.Subscriptions.Toggle(s.cli.ctx)
	if err != nil {
		return fmt.Errorf("toggle subscription: %w", err)
	}
	if sub.IsActive {
		fmt.Fprintln(s.cli.out, "delivery resumed")
	} else {
		fmt.Fprintln(s.cli.out, "delivery paused")
	}
	return nil
}

// SubDeleteCmd removes the subscription.
type SubDeleteCmd struct {
	Yes bool `short:"y" long:"yes" description:"confirm deletion"`
	cli *cli
}

// Execute deletes the subscription when --yes is given.
func (s *SubDeleteCmd) Execute(_ []string) error {
	if !s.Yes {
		return errors.New("deleting the subscription cannot be undone, pass --yes to confirm")
	}
	deps, err := s.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	if err := deps.Services.Subscriptions.Delete(s.cli.ctx); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	fmt.Fprintln(s.cli.out, "subscription deleted")
	return nil
}

// HistoryCmd lists delivered articles.
type HistoryCmd struct {
	Limit  int `short:"n" long:"limit" default:"20" description:"items per page"`
	Offset int `long:"offset" default:"0" description:"items to skip"`
	cli    *cli
}

// Execute prints one page of history.
func (h *HistoryCmd) Execute(_ []string) error {
	if h.Limit <= 0 || h.Offset < 0 {
		return errors.New("limit must be positive and offset non-negative")
	}
	deps, err := h.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	page, err := deps.Services.History.List(h.cli.ctx, h.Limit, h.Offset)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(page.Items) == 0 {
		fmt.Fprintln(h.cli.out, "no deliveries yet")
		return nil
	}
	return printYAML(h.cli.out, page.Items)
}

// StatsCmd prints delivery statistics.
type StatsCmd struct {
	cli *cli
}

// Execute prints the stats record.
func (s *StatsCmd) Execute(_ []string) error {
	deps, err := s.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	stats, err := deps.Services.History.Stats(s.cli.ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}
	return printYAML(s.cli.out, stats)
}

// QuickSetupCmd creates a subscription from an interest template.
type QuickSetupCmd struct {
	Category  string `long:"category" description:"interest template category (see --list)"`
	Platform  string `long:"platform" default:"email" choice:"email" choice:"discord" description:"delivery platform"`
	Target    string `long:"target" description:"email address or Discord webhook URL"`
	Frequency string `long:"frequency" default:"daily" choice:"daily" choice:"twice" choice:"thrice" description:"push frequency"`
	Language  string `long:"language" default:"zh-tw" description:"summary language"`
	List      bool   `long:"list" description:"list interest templates and exit"`
	cli       *cli
}

// Execute validates the answers locally and submits them.
func (q *QuickSetupCmd) Execute(_ []string) error {
	deps, err := q.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	svc := deps.Services.Onboarding
	if q.List {
		templates, err := svc.Templates(q.cli.ctx)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
		return printYAML(q.cli.out, templates)
	}

	f := state.QuickSetupForm{
		InterestCategory:  q.Category,
		DeliveryPlatform:  q.Platform,
		DeliveryTarget:    q.Target,
		PushFrequencyType: q.Frequency,
		SummaryLanguage:   q.Language,
	}
	if err := f.Validate(); err != nil {
		return err
	}
	resp, err := svc.Setup(q.cli.ctx, f.Request())
	if err != nil {
		return fmt.Errorf("quick setup: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("quick setup: %s", strings.TrimSpace(resp.Message))
	}
	if resp.Subscription != nil {
		return printYAML(q.cli.out, resp.Subscription)
	}
	fmt.Fprintln(q.cli.out, resp.Message)
	return nil
}

// TagsCmd groups the tag commands.
type TagsCmd struct {
	Preview TagsPreviewCmd `command:"preview" description:"show which tags keywords map to"`
}

// TagsPreviewCmd previews the keyword to tag mapping.
type TagsPreviewCmd struct {
	Args struct {
		Keywords []string `positional-arg-name:"keyword" required:"1"`
	} `positional-args:"yes"`
	cli *cli
}

// Execute prints the preview.
func (t *TagsPreviewCmd) Execute(_ []string) error {
	deps, err := t.cli.authed()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	preview, err := deps.Services.Tags.Preview(t.cli.ctx, t.Args.Keywords)
	if err != nil {
		return fmt.Errorf("preview tags: %w", err)
	}
	return printYAML(t.cli.out, preview)
}

// StatusCmd reports backend health and client settings.
type StatusCmd struct {
	cli *cli
}

type statusRecord struct {
	API         string             `yaml:"api"`
	ColdStart   bool               `yaml:"cold_start"`
	Backend     *api.Health        `yaml:"backend,omitempty"`
	BackendErr  string             `yaml:"backend_error,omitempty"`
	Runtime     *api.RuntimeConfig `yaml:"runtime,omitempty"`
	SignedIn    bool               `yaml:"signed_in"`
	User        string             `yaml:"user,omitempty"`
	RateLimited int                `yaml:"rate_limited_endpoints"`
	Warnings    []string           `yaml:"warnings,omitempty"`
}

// Execute probes the backend without requiring a session. Cold-start hosts
// are woken first so the probe does not fail on a sleeping instance.
func (s *StatusCmd) Execute(_ []string) error {
	deps, err := s.cli.connect()
	if err != nil {
		return err
	}
	defer deps.Session.Close()

	rec := statusRecord{
		API:       deps.Client.BaseURL(),
		ColdStart: deps.Client.ColdStart(),
		Warnings:  deps.Config.Warnings,
	}
	if st := deps.Session.State(); st.Authenticated() && st.User != nil {
		rec.SignedIn = true
		rec.User = st.User.DisplayName()
	}

	sys := deps.Services.System
	probe := sys.Health
	if deps.Client.ColdStart() {
		probe = sys.Warmup
	}
	if h, err := probe(s.cli.ctx); err != nil {
		rec.BackendErr = api.MessageOf(err)
	} else {
		rec.Backend = &h
		if cfg, err := sys.Config(s.cli.ctx); err == nil {
			rec.Runtime = &cfg
		}
	}
	rec.RateLimited = deps.Client.RateLimits().Len()
	return printYAML(s.cli.out, rec)
}
