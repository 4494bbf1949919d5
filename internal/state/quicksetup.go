package state

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/form"
)

// QuickSetupService is the subset of the API the quick-setup flow needs.
type QuickSetupService interface {
	Templates(ctx context.Context) ([]api.InterestTemplate, error)
	Setup(ctx context.Context, in api.QuickSetupRequest) (api.QuickSetupResponse, error)
}

// QuickSetupForm holds the answers of the one-screen setup.
type QuickSetupForm struct {
	InterestCategory  string
	DeliveryPlatform  string
	DeliveryTarget    string
	PushFrequencyType string
	SummaryLanguage   string
}

// DefaultQuickSetupForm returns a form with daily delivery and zh-tw summaries preselected.
func DefaultQuickSetupForm() QuickSetupForm {
	return QuickSetupForm{
		DeliveryPlatform:  api.PlatformEmail,
		PushFrequencyType: api.FrequencyDaily,
		SummaryLanguage:   api.DefaultSummaryLanguage,
	}
}

// Validate checks the form locally.
func (f QuickSetupForm) Validate() error {
	if strings.TrimSpace(f.InterestCategory) == "" {
		return &form.ValidationError{Field: "interest_category", Message: "pick an interest category"}
	}
	if err := form.ValidateTarget(f.DeliveryPlatform, f.DeliveryTarget); err != nil {
		return err
	}
	if f.PushFrequencyType != "" && !form.ValidFrequency(f.PushFrequencyType) {
		return &form.ValidationError{Field: "push_frequency_type", Message: "unknown frequency " + f.PushFrequencyType}
	}
	return nil
}

// Request converts the form into the setup payload, filling defaults.
func (f QuickSetupForm) Request() api.QuickSetupRequest {
	req := api.QuickSetupRequest{
		InterestCategory:  strings.TrimSpace(f.InterestCategory),
		DeliveryPlatform:  f.DeliveryPlatform,
		DeliveryTarget:    strings.TrimSpace(f.DeliveryTarget),
		PushFrequencyType: f.PushFrequencyType,
		SummaryLanguage:   f.SummaryLanguage,
	}
	if req.PushFrequencyType == "" {
		req.PushFrequencyType = api.FrequencyDaily
	}
	if req.SummaryLanguage == "" {
		req.SummaryLanguage = api.DefaultSummaryLanguage
	}
	return req
}

// QuickSetupState is a snapshot of the quick-setup flow.
type QuickSetupState struct {
	Templates  []api.InterestTemplate
	Loading    bool
	Submitting bool
	Error      string
	Created    *api.Subscription
}

// QuickSetupController creates a subscription from a preset in one step.
type QuickSetupController struct {
	svc    QuickSetupService
	subs   *SubscriptionController
	notify Notifier

	mu sync.Mutex
	st QuickSetupState
}

// NewQuickSetupController returns a controller that hands created
// subscriptions to subs when it is non-nil.
func NewQuickSetupController(svc QuickSetupService, subs *SubscriptionController, notify Notifier) *QuickSetupController {
	return &QuickSetupController{svc: svc, subs: subs, notify: orNop(notify)}
}

// State returns the current snapshot.
func (c *QuickSetupController) State() QuickSetupState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.Templates = append([]api.InterestTemplate(nil), c.st.Templates...)
	return st
}

// LoadTemplates fetches the interest presets.
func (c *QuickSetupController) LoadTemplates(ctx context.Context) error {
	c.mu.Lock()
	c.st.Loading = true
	c.mu.Unlock()

	templates, err := c.svc.Templates(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.st.Loading = false
	if err != nil {
		c.st.Error = api.MessageOf(err)
		log.Printf("[WARN] load setup templates: %v", err)
		return err
	}
	c.st.Templates = templates
	return nil
}

// Submit validates f and creates the subscription. On success the caller
// navigates to the dashboard.
func (c *QuickSetupController) Submit(ctx context.Context, f QuickSetupForm) Result {
	if err := f.Validate(); err != nil {
		c.mu.Lock()
		c.st.Error = err.Error()
		c.mu.Unlock()
		return Result{Error: err.Error()}
	}

	c.mu.Lock()
	c.st.Submitting = true
	c.st.Error = ""
	c.mu.Unlock()

	resp, err := c.svc.Setup(ctx, f.Request())
	if err == nil && resp.Subscription == nil {
		msg := resp.Message
		if msg == "" {
			msg = "setup returned no subscription"
		}
		err = errors.New(msg)
	}

	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		return Result{Error: ctx.Err().Error()}
	}
	c.st.Submitting = false
	if err != nil {
		c.st.Error = api.MessageOf(err)
		c.mu.Unlock()
		log.Printf("[WARN] quick setup: %v", err)
		if !quietFailure(err) {
			c.notify.Notify(LevelError, "Setup failed: "+api.MessageOf(err))
		}
		return Result{Error: api.MessageOf(err)}
	}
	c.st.Created = resp.Subscription
	c.mu.Unlock()

	if c.subs != nil {
		c.subs.Adopt(resp.Subscription)
	}
	c.notify.Notify(LevelSuccess, "Subscription created")
	return Result{Success: true, Subscription: resp.Subscription}
}
