package edition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Pro, Parse("pro"))
	assert.Equal(t, Free, Parse("free"))
	assert.Equal(t, Free, Parse(""))
	assert.Equal(t, Free, Parse("enterprise"))
}

func TestEdition_Restrictions(t *testing.T) {
	assert.Equal(t, []Restriction{StopSale}, Free.Restrictions())
	assert.Len(t, Pro.Restrictions(), 9)

	assert.True(t, Free.AllowsRestriction(StopSale))
	assert.False(t, Free.AllowsRestriction(MinLOS))
	assert.True(t, Pro.AllowsRestriction(CTD))
	assert.False(t, Pro.AllowsRestriction("price"))
}

func TestEdition_RestrictionsReturnsCopy(t *testing.T) {
	r := Pro.Restrictions()
	r[0] = "mutated"
	assert.Equal(t, StopSale, Pro.Restrictions()[0])
}

func TestEdition_HasFeature(t *testing.T) {
	tests := []struct {
		edition Edition
		feature Feature
		want    bool
	}{
		{Free, BasicBooking, true},
		{Free, SingleRatePlan, true},
		{Free, MultipleRatePlans, false},
		{Free, ChannelManager, false},
		{Pro, AdvancedAnalytics, true},
		{Pro, "unknown", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.edition)+"/"+string(tt.feature), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.edition.HasFeature(tt.feature))
		})
	}
}

func TestEdition_Limit(t *testing.T) {
	assert.Equal(t, 1, Free.Limit(RatePlans))
	assert.Equal(t, 50, Free.Limit(BookingsPerMonth))
	assert.Equal(t, Unlimited, Pro.Limit(EmailTemplates))
	assert.Zero(t, Free.Limit("seats"))
	assert.Zero(t, Edition("enterprise").Limit(RatePlans))
}
