// Package edition describes what the free and pro plugin editions allow:
// calendar restrictions, features and numeric limits.
package edition

import "slices"

// Edition is the installed plugin edition.
type Edition string

const (
	Free Edition = "free"
	Pro  Edition = "pro"
)

// Unlimited is the limit value of features without a cap.
const Unlimited = -1

// Parse returns the edition named s. Anything unknown is Free.
func Parse(s string) Edition {
	if e := Edition(s); e.IsValid() {
		return e
	}
	return Free
}

// IsValid reports whether e is a known edition.
func (e Edition) IsValid() bool {
	return e == Free || e == Pro
}

func (e Edition) IsPro() bool { return e == Pro }

// Restriction names a calendar restriction column.
type Restriction string

const (
	StopSale      Restriction = "stopSale"
	MinLOS        Restriction = "minLos"
	MaxLOS        Restriction = "maxLos"
	MinLOSArrival Restriction = "minLosArrival"
	MaxLOSArrival Restriction = "maxLosArrival"
	MinAdvBooking Restriction = "minAdvBooking"
	MaxAdvBooking Restriction = "maxAdvBooking"
	CTA           Restriction = "cta"
	CTD           Restriction = "ctd"
)

var proRestrictions = []Restriction{
	StopSale,
	MinLOS,
	MaxLOS,
	MinLOSArrival,
	MaxLOSArrival,
	MinAdvBooking,
	MaxAdvBooking,
	CTA,
	CTD,
}

// Restrictions lists the restrictions e may edit, in column order.
func (e Edition) Restrictions() []Restriction {
	if e.IsPro() {
		return slices.Clone(proRestrictions)
	}
	return []Restriction{StopSale}
}

// AllowsRestriction reports whether e may edit r.
func (e Edition) AllowsRestriction(r Restriction) bool {
	return slices.Contains(e.Restrictions(), r)
}

// Feature names a gated capability.
type Feature string

const (
	BasicBooking         Feature = "basic_booking"
	SingleRatePlan       Feature = "single_rate_plan"
	MultipleRatePlans    Feature = "multiple_rate_plans"
	AdvancedRestrictions Feature = "advanced_restrictions"
	ChannelManager       Feature = "channel_manager"
	AdvancedAnalytics    Feature = "advanced_analytics"
)

var features = map[Edition][]Feature{
	Free: {BasicBooking, SingleRatePlan},
	Pro: {
		BasicBooking,
		SingleRatePlan,
		MultipleRatePlans,
		AdvancedRestrictions,
		ChannelManager,
		AdvancedAnalytics,
	},
}

// HasFeature reports whether e includes f.
func (e Edition) HasFeature(f Feature) bool {
	return slices.Contains(features[e], f)
}

// Limit names a counted resource.
type Limit string

const (
	RatePlans        Limit = "rate_plan"
	PaymentGateways  Limit = "payment_gateways"
	BookingsPerMonth Limit = "bookings_per_month"
	EmailTemplates   Limit = "email_templates"
)

var limits = map[Edition]map[Limit]int{
	Free: {
		RatePlans:        1,
		PaymentGateways:  1,
		BookingsPerMonth: 50,
		EmailTemplates:   5,
	},
	Pro: {
		RatePlans:        Unlimited,
		PaymentGateways:  Unlimited,
		BookingsPerMonth: Unlimited,
		EmailTemplates:   Unlimited,
	},
}

// Limit returns the cap on l for e: Unlimited, or 0 for unknown limits.
func (e Edition) Limit(l Limit) int {
	return limits[e][l]
}
