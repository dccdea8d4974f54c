// services/recommend.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"

	"agentgift-economy/economy"

	openai "github.com/sashabaranov/go-openai"
)

const FeatureGiftRecommendation = "gift_recommendation"

var ErrEmptyPrompt = errors.New("recipient description is required")

type RecommendRequest struct {
	Recipient string `json:"recipient"`
	Occasion  string `json:"occasion"`
	Budget    string `json:"budget"`
}

// RecommendResult carries suggestions, or Degraded with an empty list when
// the provider failed and the cost was refunded.
type RecommendResult struct {
	Decision    economy.AccessDecision `json:"decision"`
	Suggestions []string               `json:"suggestions"`
	Degraded    bool                   `json:"degraded"`
	Balance     int64                  `json:"balance"`
	XPGained    int64                  `json:"xp_gained"`
	Unlocked    []string               `json:"badges_unlocked,omitempty"`
}

type RecommendService struct {
	Access *AccessService
	Ledger *LedgerService
	Client *openai.Client
	Model  string
}

// NewOpenAIClient returns nil when apiKey is empty.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

func NewRecommendService(access *AccessService, ledger *LedgerService, client *openai.Client, model string) *RecommendService {
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}
	return &RecommendService{Access: access, Ledger: ledger, Client: client, Model: model}
}

// Recommend gates, charges and asks the model for gift ideas.
func (s *RecommendService) Recommend(ctx context.Context, userID string, req RecommendRequest) (*RecommendResult, error) {
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, ErrEmptyPrompt
	}

	use, err := s.Access.Use(ctx, userID, FeatureGiftRecommendation)
	if err != nil {
		return nil, err
	}
	res := &RecommendResult{Decision: use.Decision, Suggestions: []string{}}
	if use.Debit != nil {
		res.Balance = use.Debit.Balance
		res.XPGained = use.Debit.XPGained
	}
	if !use.Decision.Granted {
		return res, nil
	}

	suggestions, err := s.complete(ctx, req)
	if err != nil {
		log.Printf("⚠️ [RECOMMEND] Provider failed for %s: %v", userID, err)
		res.Degraded = true
		if use.Debit != nil && use.Debit.Amount > 0 {
			acct, rerr := s.Ledger.Credit(ctx, userID, use.Debit.Amount, "refund:"+FeatureGiftRecommendation)
			if rerr != nil {
				return nil, fmt.Errorf("refund after provider failure: %w", rerr)
			}
			res.Balance = acct.Credits
		}
		return res, nil
	}
	res.Suggestions = suggestions
	if use.Debit != nil {
		res.Unlocked = use.Debit.Unlocked
	}
	if s.Ledger.Progression != nil {
		p, err := s.Ledger.Progression.Award(ctx, userID, economy.BadgeFirstGift)
		if err != nil {
			log.Printf("⚠️ [RECOMMEND] First-gift badge for %s failed: %v", userID, err)
		} else {
			res.Unlocked = append(res.Unlocked, p.Unlocked...)
		}
	}
	return res, nil
}

func (s *RecommendService) complete(ctx context.Context, req RecommendRequest) ([]string, error) {
	if s.Client == nil {
		return nil, errors.New("no OpenAI API key configured")
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are AgentGift, a gift concierge. Reply with exactly five gift ideas, one per line, no numbering or commentary.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
		MaxTokens:   300,
		Temperature: 0.8,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty completion")
	}
	ideas := parseSuggestions(resp.Choices[0].Message.Content)
	if len(ideas) == 0 {
		return nil, errors.New("completion had no suggestions")
	}
	return ideas, nil
}

func buildPrompt(req RecommendRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recipient: %s\n", strings.TrimSpace(req.Recipient))
	if req.Occasion != "" {
		fmt.Fprintf(&b, "Occasion: %s\n", req.Occasion)
	}
	if req.Budget != "" {
		fmt.Fprintf(&b, "Budget: %s\n", req.Budget)
	}
	return b.String()
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s*`)

// parseSuggestions takes one idea per line and strips list markers.
func parseSuggestions(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
