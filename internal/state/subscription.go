package state

import (
	"context"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/five82/digest/internal/api"
	"github.com/five82/digest/internal/session"
)

// SubscriptionService is the subset of the API the controller needs.
type SubscriptionService interface {
	Get(ctx context.Context) (*api.Subscription, error)
	Create(ctx context.Context, in api.SubscriptionCreate) (*api.Subscription, error)
	Update(ctx context.Context, in api.SubscriptionUpdate) (*api.Subscription, error)
	Delete(ctx context.Context) error
	Toggle(ctx context.Context) (*api.Subscription, error)
	FrequencyOptions(ctx context.Context) (api.FrequencyOptionsResponse, error)
}

// Result tells the caller how a mutation ended, so a form can close only on success.
type Result struct {
	Success      bool
	Subscription *api.Subscription
	Error        string
}

// SubscriptionState is a snapshot of the subscription controller.
type SubscriptionState struct {
	Subscription *api.Subscription
	Loading      bool
	Error        string

	FrequencyOptions []api.FrequencyOption
	Timezone         string
	OptionsLoading   bool
	OptionsError     string

	Initialized bool
}

// SubscriptionController owns the user's subscription and its mutations.
type SubscriptionController struct {
	svc    SubscriptionService
	notify Notifier

	mu    sync.Mutex
	st    SubscriptionState
	epoch uint64 // bumped when auth is lost; older results are dropped
}

// NewSubscriptionController returns an uninitialized controller.
func NewSubscriptionController(svc SubscriptionService, notify Notifier) *SubscriptionController {
	return &SubscriptionController{svc: svc, notify: orNop(notify)}
}

// State returns the current snapshot.
func (c *SubscriptionController) State() SubscriptionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.st
	st.FrequencyOptions = append([]api.FrequencyOption(nil), c.st.FrequencyOptions...)
	return st
}

// Sync reacts to an auth snapshot. It does nothing while auth is loading,
// clears everything when auth is lost, and performs the one-time parallel
// fetch of the subscription and frequency options once authenticated.
func (c *SubscriptionController) Sync(ctx context.Context, auth session.State) {
	switch {
	case auth.Loading || auth.Status == session.StatusLoading || auth.Status == session.StatusUninitialized:
		return
	case !auth.Authenticated():
		c.mu.Lock()
		if c.st.Initialized || c.st.Subscription != nil {
			c.epoch++
		}
		c.st = SubscriptionState{}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	if c.st.Initialized {
		c.mu.Unlock()
		return
	}
	c.st.Initialized = true
	c.st.Loading = true
	c.st.OptionsLoading = true
	epoch := c.epoch
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		sub, err := c.svc.Get(ctx)
		c.settleFetch(ctx, epoch, sub, err)
		return nil
	})
	g.Go(func() error {
		opts, err := c.svc.FrequencyOptions(ctx)
		c.settleOptions(ctx, epoch, opts, err)
		return nil
	})
	_ = g.Wait()
}

// Refresh refetches the subscription.
func (c *SubscriptionController) Refresh(ctx context.Context) {
	c.mu.Lock()
	c.st.Loading = true
	epoch := c.epoch
	c.mu.Unlock()

	sub, err := c.svc.Get(ctx)
	c.settleFetch(ctx, epoch, sub, err)
}

func (c *SubscriptionController) settleFetch(ctx context.Context, epoch uint64, sub *api.Subscription, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || epoch != c.epoch {
		return
	}
	c.st.Loading = false
	if err != nil {
		c.st.Error = api.MessageOf(err)
		log.Printf("[WARN] fetch subscription: %v", err)
		return
	}
	c.st.Error = ""
	c.st.Subscription = sub
}

func (c *SubscriptionController) settleOptions(ctx context.Context, epoch uint64, opts api.FrequencyOptionsResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ctx.Err() != nil || epoch != c.epoch {
		return
	}
	c.st.OptionsLoading = false
	if err != nil {
		c.st.OptionsError = api.MessageOf(err)
		log.Printf("[WARN] fetch frequency options: %v", err)
		return
	}
	c.st.OptionsError = ""
	c.st.FrequencyOptions = opts.Options
	c.st.Timezone = opts.Timezone
}

// Create stores a new subscription.
func (c *SubscriptionController) Create(ctx context.Context, in api.SubscriptionCreate) Result {
	return c.mutate(ctx, "create subscription", func(ctx context.Context) (*api.Subscription, error) {
		return c.svc.Create(ctx, in)
	}, func(*api.Subscription) string { return "Subscription created" })
}

// Update changes the subscription.
func (c *SubscriptionController) Update(ctx context.Context, in api.SubscriptionUpdate) Result {
	return c.mutate(ctx, "update subscription", func(ctx context.Context) (*api.Subscription, error) {
		return c.svc.Update(ctx, in)
	}, func(*api.Subscription) string { return "Subscription updated" })
}

// Delete removes the subscription.
func (c *SubscriptionController) Delete(ctx context.Context) Result {
	return c.mutate(ctx, "delete subscription", func(ctx context.Context) (*api.Subscription, error) {
		return nil, c.svc.Delete(ctx)
	}, func(*api.Subscription) string { return "Subscription deleted" })
}

// Toggle pauses or resumes delivery.
func (c *SubscriptionController) Toggle(ctx context.Context) Result {
	return c.mutate(ctx, "toggle subscription", c.svc.Toggle, func(sub *api.Subscription) string {
		if sub != nil && sub.IsActive {
			return "Push delivery resumed"
		}
		return "Push delivery paused"
	})
}

func (c *SubscriptionController) mutate(
	ctx context.Context,
	action string,
	call func(context.Context) (*api.Subscription, error),
	successMsg func(*api.Subscription) string,
) Result {
	c.mu.Lock()
	c.st.Loading = true
	epoch := c.epoch
	c.mu.Unlock()

	sub, err := call(ctx)

	c.mu.Lock()
	stale := ctx.Err() != nil || epoch != c.epoch
	if !stale {
		c.st.Loading = false
		if err == nil {
			c.st.Subscription = sub
			c.st.Error = ""
		} else {
			c.st.Error = api.MessageOf(err)
		}
	}
	c.mu.Unlock()

	if err != nil {
		msg := api.MessageOf(err)
		log.Printf("[WARN] %s: %v", action, err)
		if !stale && !quietFailure(err) {
			c.notify.Notify(LevelError, "Failed to "+action+": "+msg)
		}
		return Result{Error: msg}
	}
	if !stale {
		c.notify.Notify(LevelSuccess, successMsg(sub))
	}
	return Result{Success: true, Subscription: sub}
}

// Adopt replaces the subscription with one created elsewhere, such as the
// guidance or quick-setup flows.
func (c *SubscriptionController) Adopt(sub *api.Subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.st.Subscription = sub
	c.st.Error = ""
}
