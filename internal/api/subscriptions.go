package api

import (
	"context"
	"net/http"
)

// SubscriptionAPI binds the /subscriptions endpoints.
type SubscriptionAPI struct {
	r Requester
}

// NewSubscriptionAPI builds the subscription sub-client on r.
func NewSubscriptionAPI(r Requester) *SubscriptionAPI {
	return &SubscriptionAPI{r: r}
}

// Get returns the current user's subscription, or nil when none exists.
func (s *SubscriptionAPI) Get(ctx context.Context) (*Subscription, error) {
	var sub *Subscription
	err := s.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/subscriptions/", Out: &sub})
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Create stores a new subscription.
func (s *SubscriptionAPI) Create(ctx context.Context, in SubscriptionCreate) (*Subscription, error) {
	var sub Subscription
	if err := s.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/subscriptions/", Body: in, Out: &sub}); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Update changes the non-nil fields of the subscription.
func (s *SubscriptionAPI) Update(ctx context.Context, in SubscriptionUpdate) (*Subscription, error) {
	var sub Subscription
	if err := s.r.Request(ctx, Request{Method: http.MethodPut, Endpoint: "/subscriptions/", Body: in, Out: &sub}); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Delete removes the subscription.
func (s *SubscriptionAPI) Delete(ctx context.Context) error {
	return s.r.Request(ctx, Request{Method: http.MethodDelete, Endpoint: "/subscriptions/"})
}

// Toggle flips the active flag and returns the updated subscription.
func (s *SubscriptionAPI) Toggle(ctx context.Context) (*Subscription, error) {
	var sub Subscription
	if err := s.r.Request(ctx, Request{Method: http.MethodPatch, Endpoint: "/subscriptions/toggle", Out: &sub}); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FrequencyOptions returns the push-frequency tiers.
func (s *SubscriptionAPI) FrequencyOptions(ctx context.Context) (FrequencyOptionsResponse, error) {
	var payload FrequencyOptionsResponse
	err := s.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/subscriptions/frequency-options", Out: &payload})
	return payload, err
}
