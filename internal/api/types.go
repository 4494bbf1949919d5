package api

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// Delivery platforms.
const (
	PlatformEmail   = "email"
	PlatformDiscord = "discord"
)

// Push frequency tiers.
const (
	FrequencyDaily  = "daily"
	FrequencyTwice  = "twice"
	FrequencyThrice = "thrice"
)

// DefaultSummaryLanguage is used when a subscription does not pick one.
const DefaultSummaryLanguage = "zh-tw"

// MaxKeywords caps the keyword list of a subscription.
const MaxKeywords = 10

// Subscription mirrors the user's push configuration. A user has at most one.
type Subscription struct {
	ID                string     `json:"id" yaml:"id"`
	UserID            string     `json:"user_id" yaml:"user_id"`
	DeliveryPlatform  string     `json:"delivery_platform" yaml:"delivery_platform"`
	DeliveryTarget    string     `json:"delivery_target" yaml:"delivery_target"`
	Keywords          []string   `json:"keywords" yaml:"keywords"`
	NewsSources       []string   `json:"news_sources" yaml:"news_sources"`
	SummaryLanguage   string     `json:"summary_language" yaml:"summary_language"`
	PushFrequencyType string     `json:"push_frequency_type" yaml:"push_frequency_type"`
	IsActive          bool       `json:"is_active" yaml:"is_active"`
	LastPushedAt      *time.Time `json:"last_pushed_at,omitempty" yaml:"last_pushed_at,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// SubscriptionCreate is the POST /subscriptions/ payload.
type SubscriptionCreate struct {
	DeliveryPlatform  string   `json:"delivery_platform"`
	DeliveryTarget    string   `json:"delivery_target"`
	Keywords          []string `json:"keywords"`
	NewsSources       []string `json:"news_sources,omitempty"`
	SummaryLanguage   string   `json:"summary_language"`
	PushFrequencyType string   `json:"push_frequency_type"`
}

// SubscriptionUpdate is the PUT /subscriptions/ payload; nil fields are left unchanged.
type SubscriptionUpdate struct {
	DeliveryPlatform  *string  `json:"delivery_platform,omitempty"`
	DeliveryTarget    *string  `json:"delivery_target,omitempty"`
	Keywords          []string `json:"keywords,omitempty"`
	NewsSources       []string `json:"news_sources,omitempty"`
	SummaryLanguage   *string  `json:"summary_language,omitempty"`
	PushFrequencyType *string  `json:"push_frequency_type,omitempty"`
	IsActive          *bool    `json:"is_active,omitempty"`
}

// FrequencyOption describes one push-frequency tier.
type FrequencyOption struct {
	Value       string   `json:"value" yaml:"value"`
	Label       string   `json:"label" yaml:"label"`
	Description string   `json:"description" yaml:"description"`
	PushTimes   []string `json:"push_times" yaml:"push_times"`
}

// FrequencyOptionsResponse mirrors /subscriptions/frequency-options.
type FrequencyOptionsResponse struct {
	Options  []FrequencyOption `json:"options"`
	Timezone string            `json:"timezone"`
}

// Article is the denormalized article snippet carried by a history item.
type Article struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	URL         string     `json:"url" yaml:"url"`
	Summary     string     `json:"summary" yaml:"summary"`
	Source      string     `json:"source" yaml:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
}

var snippetPolicy = bluemonday.StrictPolicy()

// PlainSummary returns Summary with markup removed, suitable for terminal output.
func (a Article) PlainSummary() string {
	clean := snippetPolicy.Sanitize(a.Summary)
	return strings.Join(strings.Fields(html.UnescapeString(clean)), " ")
}

// PushHistoryItem is one past delivery.
type PushHistoryItem struct {
	ID        string    `json:"id" yaml:"id"`
	ArticleID string    `json:"article_id" yaml:"article_id"`
	PushedAt  time.Time `json:"pushed_at" yaml:"pushed_at"`
	Article   *Article  `json:"news_article,omitempty" yaml:"article,omitempty"`
}

// HistoryPage is a page of history. The backend answers either with a bare
// array or with an object carrying pagination fields.
type HistoryPage struct {
	Items   []PushHistoryItem `json:"items"`
	Total   *int              `json:"total,omitempty"`
	HasMore *bool             `json:"has_more,omitempty"`
}

// UnmarshalJSON accepts both the array and the object form.
func (p *HistoryPage) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = HistoryPage{}
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []PushHistoryItem
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("decode history list: %w", err)
		}
		*p = HistoryPage{Items: items}
		return nil
	}
	type page HistoryPage
	var raw page
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode history page: %w", err)
	}
	*p = HistoryPage(raw)
	return nil
}

// DailyCount is one bar of the per-day push histogram.
type DailyCount struct {
	Date  string `json:"date" yaml:"date"`
	Count int    `json:"count" yaml:"count"`
}

// PushStats aggregates the user's push history.
type PushStats struct {
	TotalPushes   int          `json:"total_pushes" yaml:"total_pushes"`
	RecentPushes  int          `json:"recent_pushes" yaml:"recent_pushes"`
	DailyCounts   []DailyCount `json:"daily_counts" yaml:"daily_counts"`
	MostActiveDay string       `json:"most_active_day" yaml:"most_active_day"`
}

// InvestmentFocusArea is a selectable onboarding interest.
type InvestmentFocusArea struct {
	Code              string   `json:"code" yaml:"code"`
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description" yaml:"description"`
	SampleKeywords    []string `json:"sample_keywords" yaml:"sample_keywords"`
	SuggestedKeywords []string `json:"suggested_keywords,omitempty" yaml:"suggested_keywords,omitempty"`
}

// GuidanceStatus reports the user's progress through the onboarding wizard.
type GuidanceStatus struct {
	IsCompleted     bool       `json:"is_completed" yaml:"is_completed"`
	CurrentStep     string     `json:"current_step" yaml:"current_step"`
	FocusAreas      []string   `json:"focus_areas" yaml:"focus_areas"`
	Keywords        []string   `json:"keywords" yaml:"keywords"`
	FocusScore      *float64   `json:"focus_score,omitempty" yaml:"focus_score,omitempty"`
	LastGuidedAt    *time.Time `json:"last_guided_at,omitempty" yaml:"last_guided_at,omitempty"`
	NeedsGuidance   bool       `json:"needs_guidance" yaml:"needs_guidance"`
	HasSubscription bool       `json:"has_subscription" yaml:"has_subscription"`
}

// GuidanceStart is returned by POST /guidance/start.
type GuidanceStart struct {
	SessionID  string                `json:"session_id"`
	FocusAreas []InvestmentFocusArea `json:"focus_areas"`
	Message    string                `json:"message"`
}

// FocusSelection is returned by POST /guidance/investment-focus.
type FocusSelection struct {
	FocusAreas        []string `json:"focus_areas"`
	SuggestedKeywords []string `json:"suggested_keywords"`
	Message           string   `json:"message"`
}

// KeywordCluster is one semantic group found by keyword analysis.
type KeywordCluster struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords" yaml:"keywords"`
	Weight   float64  `json:"weight" yaml:"weight"`
}

// KeywordAnalysis is the clustering/focus-score result for a keyword set.
type KeywordAnalysis struct {
	FocusScore     float64          `json:"focus_score" yaml:"focus_score"`
	Clusters       []KeywordCluster `json:"clusters" yaml:"clusters"`
	PrimaryTopic   string           `json:"primary_topic" yaml:"primary_topic"`
	Suggestions    []string         `json:"suggestions" yaml:"suggestions"`
	Warnings       []string         `json:"warnings" yaml:"warnings"`
	RecommendedAdd []string         `json:"recommended_keywords" yaml:"recommended_keywords"`
}

// GuidanceFinalize is the POST /guidance/finalize payload.
type GuidanceFinalize struct {
	FocusAreas        []string `json:"focus_areas"`
	Keywords          []string `json:"keywords"`
	DeliveryPlatform  string   `json:"delivery_platform"`
	DeliveryTarget    string   `json:"delivery_target"`
	PushFrequencyType string   `json:"push_frequency_type"`
	SummaryLanguage   string   `json:"summary_language"`
}

// GuidanceResult is returned by POST /guidance/finalize.
type GuidanceResult struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	FocusScore   float64       `json:"focus_score"`
	Subscription *Subscription `json:"subscription"`
}

// OptimizationSuggestions mirrors GET /guidance/optimization-suggestions.
type OptimizationSuggestions struct {
	FocusScore      float64  `json:"focus_score" yaml:"focus_score"`
	Suggestions     []string `json:"suggestions" yaml:"suggestions"`
	RemoveKeywords  []string `json:"remove_keywords" yaml:"remove_keywords"`
	AddKeywords     []string `json:"add_keywords" yaml:"add_keywords"`
	NeedsAttention  bool     `json:"needs_attention" yaml:"needs_attention"`
	LastAnalyzedAt  string   `json:"last_analyzed_at" yaml:"last_analyzed_at"`
	ImprovementHint string   `json:"improvement_hint" yaml:"improvement_hint"`
}

// GuidanceHistoryEntry is one past guidance run.
type GuidanceHistoryEntry struct {
	ID         string    `json:"id" yaml:"id"`
	FocusAreas []string  `json:"focus_areas" yaml:"focus_areas"`
	Keywords   []string  `json:"keywords" yaml:"keywords"`
	FocusScore float64   `json:"focus_score" yaml:"focus_score"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// InterestTemplate is a quick-onboarding preset.
type InterestTemplate struct {
	Category    string   `json:"interest_category" yaml:"interest_category"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	NewsSources []string `json:"news_sources" yaml:"news_sources"`
}

// QuickSetupRequest is the POST /quick-onboarding/setup payload.
type QuickSetupRequest struct {
	InterestCategory  string `json:"interest_category"`
	DeliveryPlatform  string `json:"delivery_platform"`
	DeliveryTarget    string `json:"delivery_target"`
	PushFrequencyType string `json:"push_frequency_type"`
	SummaryLanguage   string `json:"summary_language"`
}

// QuickSetupResponse is returned by POST /quick-onboarding/setup.
type QuickSetupResponse struct {
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	Subscription *Subscription `json:"subscription"`
}

// PlatformInfo describes a delivery platform and how to configure it.
type PlatformInfo struct {
	Platform     string   `json:"platform" yaml:"platform"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	TargetFormat string   `json:"target_format" yaml:"target_format"`
	SetupSteps   []string `json:"setup_steps" yaml:"setup_steps"`
}

// TargetValidation is the answer of POST /quick-onboarding/validate-target.
type TargetValidation struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// MigrationCheck reports whether a legacy subscription needs migrating.
type MigrationCheck struct {
	NeedsMigration bool     `json:"needs_migration" yaml:"needs_migration"`
	Reason         string   `json:"reason" yaml:"reason"`
	LegacyKeywords []string `json:"legacy_keywords" yaml:"legacy_keywords"`
}

// Tag is one entry of the tag catalog.
type Tag struct {
	Code        string `json:"tag_code" yaml:"tag_code"`
	NameZh      string `json:"tag_name_zh" yaml:"tag_name_zh"`
	NameEn      string `json:"tag_name_en" yaml:"tag_name_en"`
	Category    string `json:"category" yaml:"category"`
	Description string `json:"description" yaml:"description"`
}

// TagPreferences are the tags a user opted into.
type TagPreferences struct {
	TagCodes []string `json:"tag_codes" yaml:"tag_codes"`
}

// TagPreview maps keywords to the tags they would match.
type TagPreview struct {
	Keywords    []string            `json:"keywords" yaml:"keywords"`
	MatchedTags []Tag               `json:"matched_tags" yaml:"matched_tags"`
	ByKeyword   map[string][]string `json:"keyword_tags" yaml:"keyword_tags"`
}

// MatchExplanation explains why an article was matched to a subscription.
type MatchExplanation struct {
	ArticleID       string   `json:"article_id" yaml:"article_id"`
	MatchedKeywords []string `json:"matched_keywords" yaml:"matched_keywords"`
	MatchedTags     []string `json:"matched_tags" yaml:"matched_tags"`
	Score           float64  `json:"score" yaml:"score"`
	Explanation     string   `json:"explanation" yaml:"explanation"`
}

// TagStats aggregates tag usage.
type TagStats struct {
	TotalTags    int            `json:"total_tags" yaml:"total_tags"`
	TaggedNews   int            `json:"tagged_news" yaml:"tagged_news"`
	TopTags      []TagCount     `json:"top_tags" yaml:"top_tags"`
	ByCategory   map[string]int `json:"by_category" yaml:"by_category"`
	LastUpdated  string         `json:"last_updated" yaml:"last_updated"`
	UserTagCount int            `json:"user_tag_count" yaml:"user_tag_count"`
}

// TagCount is a tag with its usage count.
type TagCount struct {
	Code  string `json:"tag_code" yaml:"tag_code"`
	Count int    `json:"count" yaml:"count"`
}

// Health mirrors GET /health.
type Health struct {
	Status    string `json:"status" yaml:"status"`
	Version   string `json:"version" yaml:"version"`
	Timestamp string `json:"timestamp" yaml:"timestamp"`
}

// OK reports whether the backend declared itself healthy.
func (h Health) OK() bool {
	s := strings.ToLower(strings.TrimSpace(h.Status))
	return s == "ok" || s == "healthy"
}

// RuntimeConfig mirrors GET /config.
type RuntimeConfig struct {
	Environment        string   `json:"environment" yaml:"environment"`
	SupportedLanguages []string `json:"supported_languages" yaml:"supported_languages"`
	SupportedPlatforms []string `json:"supported_platforms" yaml:"supported_platforms"`
	MaxKeywords        int      `json:"max_keywords" yaml:"max_keywords"`
	NewsSources        []string `json:"news_sources" yaml:"news_sources"`
}
