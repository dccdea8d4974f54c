// economy/access.go
package economy

import "fmt"

// DenyReason tells the UI which prompt to show: sign-in, upsell or top-up.
type DenyReason string

const (
	ReasonNoAuth              DenyReason = "no_auth"
	ReasonInsufficientTier    DenyReason = "insufficient_tier"
	ReasonInsufficientCredits DenyReason = "insufficient_credits"
	ReasonFeatureDisabled     DenyReason = "feature_disabled"
)

// FeatureRule gates one feature by tier and credit cost.
type FeatureRule struct {
	Key          string `json:"key" toml:"key"`
	RequiredTier Tier   `json:"required_tier" toml:"required_tier"`
	Cost         int64  `json:"cost" toml:"cost"`
	Enabled      bool   `json:"enabled" toml:"enabled"`
}

// RuleSet is keyed by feature key.
type RuleSet map[string]FeatureRule

// DefaultRules is the built-in feature table.
func DefaultRules() RuleSet {
	return RuleSet{
		"gift_recommendation": {Key: "gift_recommendation", RequiredTier: TierFree, Cost: 1, Enabled: true},
		"social_proof":        {Key: "social_proof", RequiredTier: TierFree, Cost: 0, Enabled: true},
		"gift_concierge":      {Key: "gift_concierge", RequiredTier: TierPremium, Cost: 3, Enabled: true},
		"gift_reminders":      {Key: "gift_reminders", RequiredTier: TierPremium, Cost: 0, Enabled: true},
		"voice_assistant":     {Key: "voice_assistant", RequiredTier: TierPro, Cost: 5, Enabled: true},
		"wishlist_sync":       {Key: "wishlist_sync", RequiredTier: TierElite, Cost: 2, Enabled: true},
		"bulk_gifting":        {Key: "bulk_gifting", RequiredTier: TierBusiness, Cost: 10, Enabled: true},
		"agent_console":       {Key: "agent_console", RequiredTier: TierEnterprise, Cost: 0, Enabled: true},
		"gift_quiz_legacy":    {Key: "gift_quiz_legacy", RequiredTier: TierFree, Cost: 0, Enabled: false},
	}
}

// Validate rejects rules outside the closed tier set or with a negative cost.
func (r FeatureRule) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("feature rule without key")
	}
	if _, ok := ParseTier(string(r.RequiredTier)); !ok {
		return fmt.Errorf("feature %q: %w: %q", r.Key, ErrUnknownTier, r.RequiredTier)
	}
	if r.Cost < 0 {
		return fmt.Errorf("feature %q: negative cost %d", r.Key, r.Cost)
	}
	return nil
}

// Subject is the slice of an account the checker looks at. A nil *Subject
// means nobody is signed in.
type Subject struct {
	UserID  string
	Tier    string
	Credits int64
}

// AccessDecision is the checker's answer. Reason is omitted entirely from
// JSON when access is granted.
type AccessDecision struct {
	Granted       bool       `json:"granted"`
	Feature       string     `json:"feature"`
	Reason        DenyReason `json:"reason,omitempty"`
	RequiredTier  Tier       `json:"required_tier,omitempty"`
	CreditsNeeded int64      `json:"credits_needed,omitempty"`
	Cost          int64      `json:"cost,omitempty"`
}

// CheckAccess applies, in order: authentication, rule lookup, tier, credits.
// The first failing check decides the reason.
func CheckAccess(user *Subject, featureKey string, rules RuleSet) AccessDecision {
	d := AccessDecision{Feature: featureKey}

	if user == nil || user.UserID == "" {
		d.Reason = ReasonNoAuth
		return d
	}

	rule, ok := rules[featureKey]
	if !ok || !rule.Enabled {
		d.Reason = ReasonFeatureDisabled
		return d
	}
	d.Cost = rule.Cost

	if !HasAccess(user.Tier, string(rule.RequiredTier)) {
		d.Reason = ReasonInsufficientTier
		d.RequiredTier = rule.RequiredTier
		return d
	}

	if user.Credits < rule.Cost {
		d.Reason = ReasonInsufficientCredits
		d.CreditsNeeded = rule.Cost - user.Credits
		return d
	}

	d.Granted = true
	return d
}
