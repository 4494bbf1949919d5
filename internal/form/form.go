package form

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/five82/digest/internal/api"
)

var (
	// ErrKeywordLimit is returned when a keyword would exceed api.MaxKeywords.
	ErrKeywordLimit = fmt.Errorf("at most %d keywords are allowed", api.MaxKeywords)
	// ErrDuplicateKeyword is returned for a keyword already in the list, ignoring case and width.
	ErrDuplicateKeyword = errors.New("keyword already added")
	// ErrEmptyKeyword is returned for blank input.
	ErrEmptyKeyword = errors.New("keyword is empty")
)

var webhookPath = regexp.MustCompile(`^/api/webhooks/\d+/[A-Za-z0-9_-]+/?$`)

var folder = cases.Fold()

// ValidationError names the field a local check rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateEmail accepts a bare address with a dotted domain.
func ValidateEmail(raw string) error {
	addr := strings.TrimSpace(raw)
	if addr == "" {
		return &ValidationError{Field: "delivery_target", Message: "email address is required"}
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr || parsed.Name != "" {
		return &ValidationError{Field: "delivery_target", Message: "invalid email address"}
	}
	at := strings.LastIndex(addr, "@")
	domain := addr[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return &ValidationError{Field: "delivery_target", Message: "invalid email address"}
	}
	return nil
}

// ValidateDiscordWebhook accepts https://discord.com/api/webhooks/{id}/{token}
// and the legacy discordapp.com host.
func ValidateDiscordWebhook(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return &ValidationError{Field: "delivery_target", Message: "webhook URL is required"}
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme != "https" {
		return &ValidationError{Field: "delivery_target", Message: "webhook URL must start with https://"}
	}
	switch strings.ToLower(u.Host) {
	case "discord.com", "discordapp.com", "www.discord.com", "ptb.discord.com", "canary.discord.com":
	default:
		return &ValidationError{Field: "delivery_target", Message: "webhook URL must point at discord.com"}
	}
	if !webhookPath.MatchString(u.Path) {
		return &ValidationError{Field: "delivery_target", Message: "webhook URL must look like /api/webhooks/{id}/{token}"}
	}
	return nil
}

// ValidateTarget checks target against the rules of platform.
func ValidateTarget(platform, target string) error {
	switch platform {
	case api.PlatformEmail:
		return ValidateEmail(target)
	case api.PlatformDiscord:
		return ValidateDiscordWebhook(target)
	case "":
		return &ValidationError{Field: "delivery_platform", Message: "delivery platform is required"}
	default:
		return &ValidationError{Field: "delivery_platform", Message: fmt.Sprintf("unsupported platform %q", platform)}
	}
}

// ValidFrequency reports whether f is one of the three push tiers.
func ValidFrequency(f string) bool {
	switch f {
	case api.FrequencyDaily, api.FrequencyTwice, api.FrequencyThrice:
		return true
	}
	return false
}

// Keywords is an ordered keyword list capped at api.MaxKeywords with no
// duplicates. The zero value is ready to use.
type Keywords struct {
	items []string
}

// NewKeywords builds a list from existing values, dropping blanks, duplicates
// and anything past the cap.
func NewKeywords(values []string) Keywords {
	var k Keywords
	for _, v := range values {
		_ = k.Add(v)
	}
	return k
}

// Add appends kw after trimming it. The list is unchanged on error.
func (k *Keywords) Add(kw string) error {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return ErrEmptyKeyword
	}
	if k.Contains(kw) {
		return ErrDuplicateKeyword
	}
	if len(k.items) >= api.MaxKeywords {
		return ErrKeywordLimit
	}
	k.items = append(k.items, kw)
	return nil
}

// Remove deletes kw, matched the same way Add detects duplicates.
func (k *Keywords) Remove(kw string) bool {
	key := foldKey(kw)
	for i, item := range k.items {
		if foldKey(item) == key {
			k.items = append(k.items[:i], k.items[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether an equivalent keyword is present.
func (k Keywords) Contains(kw string) bool {
	key := foldKey(kw)
	for _, item := range k.items {
		if foldKey(item) == key {
			return true
		}
	}
	return false
}

// Len returns the number of keywords.
func (k Keywords) Len() int { return len(k.items) }

// Full reports whether another keyword would be rejected for the cap.
func (k Keywords) Full() bool { return len(k.items) >= api.MaxKeywords }

// Values returns a copy of the keywords in insertion order.
func (k Keywords) Values() []string {
	return append([]string(nil), k.items...)
}

// foldKey normalizes width variants (full-width Latin typed with CJK input
// methods) and case before comparison.
func foldKey(s string) string {
	return folder.String(norm.NFKC.String(strings.TrimSpace(s)))
}

// SubscriptionForm is the editable state of the subscription screen.
type SubscriptionForm struct {
	Platform        string
	Target          string
	Keywords        Keywords
	Frequency       string
	SummaryLanguage string
}

// FromSubscription seeds a form from an existing subscription.
func FromSubscription(s *api.Subscription) SubscriptionForm {
	if s == nil {
		return SubscriptionForm{Platform: api.PlatformEmail, Frequency: api.FrequencyDaily, SummaryLanguage: api.DefaultSummaryLanguage}
	}
	return SubscriptionForm{
		Platform:        s.DeliveryPlatform,
		Target:          s.DeliveryTarget,
		Keywords:        NewKeywords(s.Keywords),
		Frequency:       s.PushFrequencyType,
		SummaryLanguage: s.SummaryLanguage,
	}
}

// Validate runs every local check and returns the first failure.
func (f SubscriptionForm) Validate() error {
	if err := ValidateTarget(f.Platform, f.Target); err != nil {
		return err
	}
	if f.Keywords.Len() == 0 {
		return &ValidationError{Field: "keywords", Message: "add at least one keyword"}
	}
	if f.Frequency != "" && !ValidFrequency(f.Frequency) {
		return &ValidationError{Field: "push_frequency_type", Message: fmt.Sprintf("unknown frequency %q", f.Frequency)}
	}
	return nil
}

// Create converts a validated form into a create payload, applying defaults.
func (f SubscriptionForm) Create() api.SubscriptionCreate {
	freq := f.Frequency
	if freq == "" {
		freq = api.FrequencyDaily
	}
	lang := f.SummaryLanguage
	if lang == "" {
		lang = api.DefaultSummaryLanguage
	}
	return api.SubscriptionCreate{
		DeliveryPlatform:  f.Platform,
		DeliveryTarget:    strings.TrimSpace(f.Target),
		Keywords:          f.Keywords.Values(),
		PushFrequencyType: freq,
		SummaryLanguage:   lang,
	}
}

// Update converts the form into an update carrying every field.
func (f SubscriptionForm) Update() api.SubscriptionUpdate {
	c := f.Create()
	return api.SubscriptionUpdate{
		DeliveryPlatform:  &c.DeliveryPlatform,
		DeliveryTarget:    &c.DeliveryTarget,
		Keywords:          c.Keywords,
		PushFrequencyType: &c.PushFrequencyType,
		SummaryLanguage:   &c.SummaryLanguage,
	}
}
