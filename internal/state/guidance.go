package state

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/form"
)

// GuidanceService is the subset of the API the guidance wizard needs.
type GuidanceService interface {
	Status(ctx context.Context) (api.GuidanceStatus, error)
	Start(ctx context.Context) (api.GuidanceStart, error)
	SelectFocus(ctx context.Context, areas []string) (api.FocusSelection, error)
	AnalyzeKeywords(ctx context.Context, focusAreas, keywords []string) (api.KeywordAnalysis, error)
	Finalize(ctx context.Context, in api.GuidanceFinalize) (api.GuidanceResult, error)
	OptimizationSuggestions(ctx context.Context) (api.OptimizationSuggestions, error)
}

// GuidanceStep is the wizard position.
type GuidanceStep int

const (
	StepFocus GuidanceStep = iota
	StepKeywords
	StepAnalysis
	StepFinalize
	StepDone
)

func (s GuidanceStep) String() string {
	switch s {
	case StepKeywords:
		return "keywords"
	case StepAnalysis:
		return "analysis"
	case StepFinalize:
		return "finalize"
	case StepDone:
		return "done"
	default:
		return "focus"
	}
}

// Delivery carries the final wizard step's answers.
type Delivery struct {
	Platform        string
	Target          string
	Frequency       string
	SummaryLanguage string
}

// GuidanceState is a snapshot of the wizard.
type GuidanceState struct {
	Step        GuidanceStep
	Status      *api.GuidanceStatus
	SessionID   string
	FocusAreas  []api.InvestmentFocusArea
	Selected    []string
	Suggested   []string
	Keywords    []string
	Analysis    *api.KeywordAnalysis
	Result      *api.GuidanceResult
	Suggestions *api.OptimizationSuggestions
	Loading     bool
	Error       string
}

// GuidanceController drives the onboarding wizard.
type GuidanceController struct {
	svc    GuidanceService
	notify Notifier

	mu       sync.Mutex
	st       GuidanceState
	keywords form.Keywords
	run      uint64 // bumped by Cancel; late answers of a cancelled run are dropped
}

// NewGuidanceController returns a wizard positioned at the focus step.
func NewGuidanceController(svc GuidanceService, notify Notifier) *GuidanceController {
	return &GuidanceController{svc: svc, notify: orNop(notify)}
}

// State returns the current snapshot.
func (c *GuidanceController) State() GuidanceState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.Keywords = c.keywords.Values()
	st.Selected = append([]string(nil), c.st.Selected...)
	return st
}

// LoadStatus fetches the user's wizard progress.
func (c *GuidanceController) LoadStatus(ctx context.Context) error {
	return c.step(ctx, "load guidance status", func(ctx context.Context) (func(), error) {
		status, err := c.svc.Status(ctx)
		return func() { c.st.Status = &status }, err
	})
}

// Start opens a wizard session and lists the focus areas.
func (c *GuidanceController) Start(ctx context.Context) error {
	return c.step(ctx, "start guidance", func(ctx context.Context) (func(), error) {
		start, err := c.svc.Start(ctx)
		return func() {
			c.st.SessionID = start.SessionID
			c.st.FocusAreas = start.FocusAreas
			c.st.Step = StepFocus
		}, err
	})
}

// SelectFocus records the chosen areas and moves to keyword entry.
func (c *GuidanceController) SelectFocus(ctx context.Context, areas []string) error {
	if len(areas) == 0 {
		return c.fail(&form.ValidationError{Field: "focus_areas", Message: "pick at least one focus area"})
	}
	return c.step(ctx, "select focus areas", func(ctx context.Context) (func(), error) {
		sel, err := c.svc.SelectFocus(ctx, areas)
		return func() {
			c.st.Selected = append([]string(nil), areas...)
			c.st.Suggested = sel.SuggestedKeywords
			c.st.Step = StepKeywords
		}, err
	})
}

// AddKeyword appends kw to the wizard's keyword list, notifying on rejection.
func (c *GuidanceController) AddKeyword(kw string) error {
	c.mu.Lock()
	err := c.keywords.Add(kw)
	c.mu.Unlock()
	if err != nil && !errors.Is(err, form.ErrEmptyKeyword) {
		c.notify.Notify(LevelError, err.Error())
	}
	return err
}

// RemoveKeyword drops kw from the list.
func (c *GuidanceController) RemoveKeyword(kw string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keywords.Remove(kw)
}

// Analyze asks the backend to cluster the keywords and score their focus.
func (c *GuidanceController) Analyze(ctx context.Context) error {
	c.mu.Lock()
	keywords := c.keywords.Values()
	areas := append([]string(nil), c.st.Selected...)
	c.mu.Unlock()
	if len(keywords) == 0 {
		return c.fail(&form.ValidationError{Field: "keywords", Message: "add at least one keyword"})
	}
	return c.step(ctx, "analyze keywords", func(ctx context.Context) (func(), error) {
		analysis, err := c.svc.AnalyzeKeywords(ctx, areas, keywords)
		return func() {
			c.st.Analysis = &analysis
			c.st.Step = StepAnalysis
		}, err
	})
}

// Proceed moves from the analysis review to the delivery step.
func (c *GuidanceController) Proceed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.Step == StepAnalysis {
		c.st.Step = StepFinalize
	}
}

// Back returns to the previous step without discarding answers.
func (c *GuidanceController) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st.Step > StepFocus && c.st.Step < StepDone {
		c.st.Step--
	}
	c.st.Error = ""
}

// Finalize validates the delivery answers and completes the wizard.
func (c *GuidanceController) Finalize(ctx context.Context, d Delivery) Result {
	if err := form.ValidateTarget(d.Platform, d.Target); err != nil {
		_ = c.fail(err)
		return Result{Error: err.Error()}
	}
	if d.Frequency == "" {
		d.Frequency = api.FrequencyDaily
	}
	if d.SummaryLanguage == "" {
		d.SummaryLanguage = api.DefaultSummaryLanguage
	}

	c.mu.Lock()
	in := api.GuidanceFinalize{
		FocusAreas:        append([]string(nil), c.st.Selected...),
		Keywords:          c.keywords.Values(),
		DeliveryPlatform:  d.Platform,
		DeliveryTarget:    d.Target,
		PushFrequencyType: d.Frequency,
		SummaryLanguage:   d.SummaryLanguage,
	}
	c.mu.Unlock()

	var result api.GuidanceResult
	err := c.step(ctx, "finalize guidance", func(ctx context.Context) (func(), error) {
		var err error
		result, err = c.svc.Finalize(ctx, in)
		return func() {
			c.st.Result = &result
			c.st.Step = StepDone
		}, err
	})
	if err != nil {
		return Result{Error: api.MessageOf(err)}
	}
	c.notify.Notify(LevelSuccess, "Subscription configured")
	return Result{Success: true, Subscription: result.Subscription}
}

// LoadSuggestions fetches keyword optimization advice for an existing subscription.
func (c *GuidanceController) LoadSuggestions(ctx context.Context) error {
	return c.step(ctx, "load optimization suggestions", func(ctx context.Context) (func(), error) {
		s, err := c.svc.OptimizationSuggestions(ctx)
		return func() { c.st.Suggestions = &s }, err
	})
}

// Cancel discards the wizard's answers.
func (c *GuidanceController) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run++
	status := c.st.Status
	c.st = GuidanceState{Status: status}
	c.keywords = form.Keywords{}
}

// step runs call with the loading flag set and applies its result under the
// lock when the run is still current.
func (c *GuidanceController) step(ctx context.Context, action string, call func(context.Context) (func(), error)) error {
	c.mu.Lock()
	c.st.Loading = true
	c.st.Error = ""
	run := c.run
	c.mu.Unlock()

	apply, err := call(ctx)

	c.mu.Lock()
	if ctx.Err() != nil || run != c.run {
		c.mu.Unlock()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return context.Canceled
	}
	c.st.Loading = false
	if err == nil {
		apply()
		c.mu.Unlock()
		return nil
	}
	c.st.Error = api.MessageOf(err)
	msg := c.st.Error
	c.mu.Unlock()

	log.Printf("[WARN] %s: %v", action, err)
	if !quietFailure(err) {
		c.notify.Notify(LevelError, "Failed to "+action+": "+msg)
	}
	return err
}

func (c *GuidanceController) fail(err error) error {
	c.mu.Lock()
	c.st.Error = err.Error()
	c.mu.Unlock()
	return err
}
