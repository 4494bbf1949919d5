package form

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/digest/internal/api"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"ann@example.org", true},
		{"  ann.lee+news@mail.example.co.uk ", true},
		{"", false},
		{"ann", false},
		{"ann@localhost", false},
		{"Ann <ann@example.org>", false},
		{"ann@@example.org", false},
		{"ann@example.", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateEmail(tt.in)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "delivery_target", verr.Field)
		})
	}
}

func TestValidateDiscordWebhook(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"https://discord.com/api/webhooks/123456789/abcDEF_-123", true},
		{"https://discordapp.com/api/webhooks/1/tok", true},
		{"http://discord.com/api/webhooks/1/tok", false},
		{"https://evil.example/api/webhooks/1/tok", false},
		{"https://discord.com/api/webhooks/abc/tok", false},
		{"https://discord.com/api/webhooks/1", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidateDiscordWebhook(tt.in)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateTarget_DispatchesOnPlatform(t *testing.T) {
	assert.NoError(t, ValidateTarget(api.PlatformEmail, "ann@example.org"))
	assert.Error(t, ValidateTarget(api.PlatformDiscord, "ann@example.org"))
	assert.Error(t, ValidateTarget("", "ann@example.org"))
	assert.Error(t, ValidateTarget("telegram", "x"))
}

func TestKeywords_CapAndDuplicates(t *testing.T) {
	var k Keywords
	for i := 0; i < api.MaxKeywords; i++ {
		require.NoError(t, k.Add(fmt.Sprintf("kw%d", i)))
	}
	assert.True(t, k.Full())

	err := k.Add("eleventh")
	require.True(t, errors.Is(err, ErrKeywordLimit))
	assert.Equal(t, api.MaxKeywords, k.Len())

	require.ErrorIs(t, k.Add(" KW3 "), ErrDuplicateKeyword, "duplicates are reported before the cap")
	assert.Equal(t, api.MaxKeywords, k.Len())
}

func TestKeywords_FoldsCaseAndWidth(t *testing.T) {
	var k Keywords
	require.NoError(t, k.Add("AI"))
	require.ErrorIs(t, k.Add("ai"), ErrDuplicateKeyword)
	require.ErrorIs(t, k.Add("ＡＩ"), ErrDuplicateKeyword)
	require.ErrorIs(t, k.Add("   "), ErrEmptyKeyword)
	require.NoError(t, k.Add("台積電"))
	assert.Equal(t, []string{"AI", "台積電"}, k.Values())

	assert.True(t, k.Remove("ａｉ"))
	assert.False(t, k.Remove("AI"))
	assert.Equal(t, []string{"台積電"}, k.Values())
}

func TestNewKeywords_DropsInvalidEntries(t *testing.T) {
	k := NewKeywords([]string{"a", "A", "", "b"})
	assert.Equal(t, []string{"a", "b"}, k.Values())

	values := k.Values()
	values[0] = "mutated"
	assert.Equal(t, "a", k.Values()[0])
}

func TestSubscriptionForm(t *testing.T) {
	f := FromSubscription(nil)
	assert.Equal(t, api.PlatformEmail, f.Platform)
	assert.Equal(t, api.FrequencyDaily, f.Frequency)

	f.Target = "ann@example.org"
	var verr *ValidationError
	require.ErrorAs(t, f.Validate(), &verr)
	assert.Equal(t, "keywords", verr.Field)

	require.NoError(t, f.Keywords.Add("NVDA"))
	require.NoError(t, f.Validate())

	f.Frequency = "hourly"
	require.Error(t, f.Validate())
	f.Frequency = ""

	c := f.Create()
	assert.Equal(t, api.FrequencyDaily, c.PushFrequencyType)
	assert.Equal(t, api.DefaultSummaryLanguage, c.SummaryLanguage)
	assert.Equal(t, []string{"NVDA"}, c.Keywords)

	u := f.Update()
	require.NotNil(t, u.DeliveryTarget)
	assert.Equal(t, "ann@example.org", *u.DeliveryTarget)
	assert.Nil(t, u.IsActive)
}

func TestFromSubscription(t *testing.T) {
	f := FromSubscription(&api.Subscription{
		DeliveryPlatform:  api.PlatformDiscord,
		DeliveryTarget:    "https://discord.com/api/webhooks/1/t",
		Keywords:          []string{"Fed", "fed", "CPI"},
		PushFrequencyType: api.FrequencyThrice,
		SummaryLanguage:   "en",
	})
	assert.Equal(t, []string{"Fed", "CPI"}, f.Keywords.Values())
	require.NoError(t, f.Validate())
}
