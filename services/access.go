// services/access.go
package services

import (
	"context"
	"log"

	"agentgift-economy/economy"
	"agentgift-economy/metrics"
)

// UseResult is a gated feature use: the decision and, when granted with a
// cost, the debit.
type UseResult struct {
	Decision economy.AccessDecision `json:"decision"`
	Debit    *DebitResult           `json:"debit,omitempty"`
}

type AccessService struct {
	Accounts *AccountService
	Ledger   *LedgerService
	Rules    economy.RuleSet
}

func NewAccessService(accounts *AccountService, ledger *LedgerService, rules economy.RuleSet) *AccessService {
	return &AccessService{Accounts: accounts, Ledger: ledger, Rules: rules}
}

// Check evaluates featureKey for userID. An empty userID is a signed-out caller.
func (s *AccessService) Check(ctx context.Context, userID, featureKey string) (economy.AccessDecision, error) {
	if userID == "" {
		d := economy.CheckAccess(nil, featureKey, s.Rules)
		record(d)
		return d, nil
	}
	acct, err := s.Accounts.Load(ctx, userID)
	if err != nil {
		return economy.AccessDecision{}, err
	}
	d := economy.CheckAccess(acct.Subject(), featureKey, s.Rules)
	record(d)
	return d, nil
}

// Use checks access and debits the feature cost. A debit that loses a race
// with another spend turns into an insufficient_credits denial.
func (s *AccessService) Use(ctx context.Context, userID, featureKey string) (*UseResult, error) {
	d, err := s.Check(ctx, userID, featureKey)
	if err != nil {
		return nil, err
	}
	if !d.Granted {
		log.Printf("🚫 [ACCESS] %s denied %s: %s", userID, featureKey, d.Reason)
		return &UseResult{Decision: d}, nil
	}

	cost := s.Rules[featureKey].Cost
	if cost == 0 {
		return &UseResult{Decision: d}, nil
	}

	debit, err := s.Ledger.Debit(ctx, userID, cost, "feature:"+featureKey)
	if err != nil {
		return nil, err
	}
	if !debit.Success {
		denied := economy.AccessDecision{
			Granted:       false,
			Feature:       featureKey,
			Reason:        economy.ReasonInsufficientCredits,
			CreditsNeeded: cost - debit.Balance,
			Cost:          cost,
		}
		return &UseResult{Decision: denied, Debit: debit}, nil
	}
	return &UseResult{Decision: d, Debit: debit}, nil
}

func (s *AccessService) Rule(featureKey string) (economy.FeatureRule, bool) {
	r, ok := s.Rules[featureKey]
	return r, ok
}

func record(d economy.AccessDecision) {
	outcome := metrics.OutcomeOK
	if !d.Granted {
		outcome = string(d.Reason)
	}
	metrics.AccessDecisions.WithLabelValues(d.Feature, outcome).Inc()
}
