package signal

import (
	"sort"
	"strings"
	"time"
)

// PaidService describes a known upstream service that a server may require
// credentials for.
type PaidService struct {
	DisplayName string
	FreeTier    bool
	PricingNote string
}

// PaidServices maps a keyword fragment matched against secret environment
// variable names to the upstream service it implies.
var PaidServices = map[string]PaidService{
	"openai":      {"OpenAI", false, "Pay-per-token, ~$0.002-0.12/1K tokens"},
	"anthropic":   {"Anthropic Claude", false, "Pay-per-token, ~$0.003-0.075/1K tokens"},
	"cohere":      {"Cohere", true, "Free tier: 100 calls/min"},
	"replicate":   {"Replicate", true, "Free tier available, then pay-per-use"},
	"huggingface": {"Hugging Face", true, "Free tier for inference API"},
	"pinecone":    {"Pinecone", true, "Free tier: 1 index"},
	"weaviate":    {"Weaviate Cloud", true, "Free sandbox available"},
	"supabase":    {"Supabase", true, "Free tier: 500MB"},
	"firebase":    {"Firebase", true, "Generous free tier"},
	"stripe":      {"Stripe", false, "Transaction fees only"},
	"twilio":      {"Twilio", true, "Free trial credits"},
	"sendgrid":    {"SendGrid", true, "Free: 100 emails/day"},
	"aws":         {"AWS", true, "Free tier for 12 months"},
	"gcp":         {"Google Cloud", true, "Free tier + $300 credit"},
	"azure":       {"Azure", true, "Free tier + $200 credit"},
	"notion":      {"Notion", true, "Free for personal use"},
	"slack":       {"Slack", true, "Free tier available"},
	"discord":     {"Discord", true, "Free for bots"},
	"github":      {"GitHub", true, "Free for public repos"},
	"gitlab":      {"GitLab", true, "Free tier available"},
	"jira":        {"Jira", true, "Free for small teams"},
	"linear":      {"Linear", true, "Free tier available"},
	"airtable":    {"Airtable", true, "Free tier available"},
	"figma":       {"Figma", true, "Free for 3 files"},
	"spotify":     {"Spotify", true, "Free API access"},
	"twitter":     {"Twitter/X", true, "Free: 1500 tweets/mo"},
	"google":      {"Google APIs", true, "Various free tiers"},
	"brave":       {"Brave Search", true, "Free: 2000 queries/mo"},
	"perplexity":  {"Perplexity", false, "Pay-per-query"},
	"exa":         {"Exa", true, "Free tier available"},
	"serpapi":     {"SerpAPI", true, "Free: 100 searches/mo"},
	"wolfram":     {"Wolfram Alpha", true, "Free: 2000/mo non-commercial"},
}

// ServiceCost is the per-server cost analysis derived from its secret
// environment variables.
type ServiceCost struct {
	serverName        string
	requiresPaid      bool
	paidServices      []string
	freeTierAvailable *bool
	notes             string
	enrichedAt        time.Time
}

// ServerName returns the server name.
func (c ServiceCost) ServerName() string { return c.serverName }

// RequiresPaid reports whether a matched service has no free tier.
func (c ServiceCost) RequiresPaid() bool { return c.requiresPaid }

// PaidServices returns the display names of matched services, sorted.
func (c ServiceCost) PaidServices() []string {
	copied := make([]string, len(c.paidServices))
	copy(copied, c.paidServices)
	return copied
}

// FreeTierAvailable reports whether every matched service has a free tier.
// Nil when no service matched.
func (c ServiceCost) FreeTierAvailable() *bool { return c.freeTierAvailable }

// Notes returns context for unmatched secret variables.
func (c ServiceCost) Notes() string { return c.notes }

// EnrichedAt returns when the analysis ran.
func (c ServiceCost) EnrichedAt() time.Time { return c.enrichedAt }

// AnalyzeServiceCost intersects a server's secret environment variable
// names with the known services table. Matching is a case-insensitive
// substring check over the variable names; each service matches at most
// once. Returns (zero, false) when the server has no secret variables.
func AnalyzeServiceCost(serverName string, secretVars []string) (ServiceCost, bool) {
	if len(secretVars) == 0 {
		return ServiceCost{}, false
	}

	joined := strings.ToLower(strings.Join(secretVars, ","))

	var matched []string
	requiresPaid := false
	allFree := true
	for key, svc := range PaidServices {
		if !strings.Contains(joined, key) {
			continue
		}
		matched = append(matched, svc.DisplayName)
		if !svc.FreeTier {
			requiresPaid = true
			allFree = false
		}
	}
	sort.Strings(matched)

	cost := ServiceCost{
		serverName:   serverName,
		requiresPaid: requiresPaid,
		paidServices: matched,
		enrichedAt:   time.Now().UTC(),
	}
	if len(matched) > 0 {
		cost.freeTierAvailable = &allFree
	} else {
		cost.notes = "Secret vars: " + strings.Join(secretVars, ",")
	}
	return cost, true
}
