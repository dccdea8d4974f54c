// services/socialproof.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"agentgift-economy/economy"
)

const (
	brandHashtag = "#agentgift"
	brandMention = "@agentgift"

	hashtagWeight = 0.4
	mentionWeight = 0.3
	oembedWeight  = 0.3

	VerifiedThreshold = 0.7
)

var (
	ErrInvalidShareURL = errors.New("share url must be an absolute http(s) url")

	hashtagPattern = regexp.MustCompile(`#[A-Za-z0-9_]+`)
)

type ShareRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

// ProofResult is the verdict on one share. Rewarded is true only the first
// time a verified URL is submitted by the user.
type ProofResult struct {
	Verified   bool     `json:"verified"`
	Confidence float64  `json:"confidence"`
	Hashtags   []string `json:"hashtags"`
	Resolved   bool     `json:"oembed_resolved"`
	Rewarded   bool     `json:"rewarded"`
	Reward     int64    `json:"reward"`
	Balance    int64    `json:"balance,omitempty"`
	Unlocked   []string `json:"badges_unlocked,omitempty"`
}

type SocialProofService struct {
	Ledger     *LedgerService
	Reward     int64
	OEmbedURL  string
	httpClient *http.Client
}

func NewSocialProofService(ledger *LedgerService, reward int64, oembedURL string) *SocialProofService {
	return &SocialProofService{
		Ledger:     ledger,
		Reward:     reward,
		OEmbedURL:  oembedURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// ExtractHashtags returns the hashtags in caption, lowercased, in order.
func ExtractHashtags(caption string) []string {
	tags := hashtagPattern.FindAllString(caption, -1)
	for i, t := range tags {
		tags[i] = strings.ToLower(t)
	}
	return tags
}

// Confidence is the weighted sum of the three signals.
func Confidence(hasHashtag, hasMention, resolved bool) float64 {
	var c float64
	if hasHashtag {
		c += hashtagWeight
	}
	if hasMention {
		c += mentionWeight
	}
	if resolved {
		c += oembedWeight
	}
	return c
}

// Verify scores a share and credits the reward once per URL per user.
func (s *SocialProofService) Verify(ctx context.Context, userID string, req ShareRequest) (*ProofResult, error) {
	u, err := url.ParseRequestURI(strings.TrimSpace(req.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidShareURL
	}
	shareURL := u.String()

	tags := ExtractHashtags(req.Caption)
	hasHashtag := false
	for _, t := range tags {
		if t == brandHashtag {
			hasHashtag = true
			break
		}
	}
	hasMention := strings.Contains(strings.ToLower(req.Caption), brandMention)
	resolved := s.resolve(ctx, shareURL)

	res := &ProofResult{
		Confidence: Confidence(hasHashtag, hasMention, resolved),
		Hashtags:   tags,
		Resolved:   resolved,
	}
	if res.Hashtags == nil {
		res.Hashtags = []string{}
	}
	// 0.4+0.3 is not exactly 0.7 in float64.
	res.Verified = res.Confidence+1e-9 >= VerifiedThreshold
	if !res.Verified || s.Reward <= 0 {
		return res, nil
	}

	first, err := s.Ledger.Store.RecordSocialProof(ctx, userID, shareURL, res.Confidence)
	if err != nil {
		return nil, fmt.Errorf("record social proof: %w", err)
	}
	if !first {
		log.Printf("🔁 [SOCIAL] %s already rewarded for %s", userID, shareURL)
		return res, nil
	}

	acct, err := s.Ledger.Credit(ctx, userID, s.Reward, "social_proof")
	if err != nil {
		return nil, err
	}
	res.Rewarded = true
	res.Reward = s.Reward
	res.Balance = acct.Credits
	log.Printf("📣 [SOCIAL] %s verified share %s (%.2f), +%d credits", userID, shareURL, res.Confidence, s.Reward)

	if s.Ledger.Progression != nil {
		p, err := s.Ledger.Progression.Award(ctx, userID, economy.BadgeSocialButterfly)
		if err != nil {
			log.Printf("⚠️ [SOCIAL] Social-butterfly badge for %s failed: %v", userID, err)
		} else {
			res.Unlocked = p.Unlocked
		}
	}
	return res, nil
}

// resolve asks the oEmbed endpoint about shareURL. Any failure counts as
// not resolved.
func (s *SocialProofService) resolve(ctx context.Context, shareURL string) bool {
	if s.OEmbedURL == "" {
		return false
	}
	endpoint, err := url.Parse(s.OEmbedURL)
	if err != nil {
		log.Printf("⚠️ [SOCIAL] Bad oEmbed endpoint %q: %v", s.OEmbedURL, err)
		return false
	}
	q := endpoint.Query()
	q.Set("url", shareURL)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ [SOCIAL] oEmbed lookup failed for %s: %v", shareURL, err)
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		Error string `json:"error"`
		Type  string `json:"type"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return false
	}
	return body.Error == "" && body.Type != ""
}
