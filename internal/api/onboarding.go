package api

import (
	"context"
	"net/http"
)

// OnboardingAPI binds the templated quick-onboarding endpoints.
type OnboardingAPI struct {
	r Requester
}

// NewOnboardingAPI builds the quick-onboarding sub-client on r.
func NewOnboardingAPI(r Requester) *OnboardingAPI {
	return &OnboardingAPI{r: r}
}

// Templates lists the interest presets.
func (o *OnboardingAPI) Templates(ctx context.Context) ([]InterestTemplate, error) {
	var templates []InterestTemplate
	err := o.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/quick-onboarding/templates", Out: &templates})
	return templates, err
}

// Setup creates a subscription from a preset.
func (o *OnboardingAPI) Setup(ctx context.Context, in QuickSetupRequest) (QuickSetupResponse, error) {
	var resp QuickSetupResponse
	err := o.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/quick-onboarding/setup", Body: in, Out: &resp})
	return resp, err
}

// PlatformInfo describes the supported delivery platforms.
func (o *OnboardingAPI) PlatformInfo(ctx context.Context) ([]PlatformInfo, error) {
	var info []PlatformInfo
	err := o.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/quick-onboarding/platform-info", Out: &info})
	return info, err
}

// ValidateTarget asks the backend whether target is deliverable on platform.
func (o *OnboardingAPI) ValidateTarget(ctx context.Context, platform, target string) (TargetValidation, error) {
	var v TargetValidation
	body := map[string]string{"platform": platform, "target": target}
	err := o.r.Request(ctx, Request{Method: http.MethodPost, Endpoint: "/quick-onboarding/validate-target", Body: body, Out: &v})
	return v, err
}

// MigrationCheck reports whether a legacy subscription should be migrated.
func (o *OnboardingAPI) MigrationCheck(ctx context.Context) (MigrationCheck, error) {
	var mc MigrationCheck
	err := o.r.Request(ctx, Request{Method: http.MethodGet, Endpoint: "/quick-onboarding/migration-check", Out: &mc})
	return mc, err
}
