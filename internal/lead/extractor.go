// Package lead infers contact and intent information from free-form chat
// text. It is a best-effort classifier built on regular expressions and
// keyword dictionaries, deliberately isolated behind a pure function boundary
// so it could later be replaced by a proper NLP extractor without touching
// the orchestration layer.
package lead

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

var emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// namePatterns match introductory phrases. The capture is a capitalized word
// or two, so "i'm happy" does not produce a name while "I'm Jane Doe" does.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[Mm]y name is ([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})\b`),
	regexp.MustCompile(`\b[Ii]'m ([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})\b`),
	regexp.MustCompile(`\b[Ii] am ([A-Z][a-z]+(?: [A-Z][a-z]+){0,2})\b`),
	regexp.MustCompile(`\b([A-Z][a-z]+(?: [A-Z][a-z]+){0,2}) here\b`),
}

var companyPattern = regexp.MustCompile(`(?i)\b(?:i work|working) (?:at|for) ([^,.!?\n]+)`)

var rolePattern = regexp.MustCompile(`(?i)\bas an? ([^,.!?\n]+?) at\b`)

// interestKeywords maps trigger keywords to canonical interest labels.
// Matching is case-insensitive substring search, not tokenized: a keyword
// embedded inside another word still matches. That looseness is inherited
// behavior, kept as-is pending product-owner clarification.
var interestKeywords = map[string]string{
	"chatbot":     "AI Chatbots",
	"chat bot":    "AI Chatbots",
	"assistant":   "AI Chatbots",
	"voice":       "Voice Interfaces",
	"speech":      "Voice Interfaces",
	"automation":  "Workflow Automation",
	"automate":    "Workflow Automation",
	"workflow":    "Workflow Automation",
	"integration": "System Integration",
	"api":         "System Integration",
	"analytics":   "Data & Analytics",
	"dashboard":   "Data & Analytics",
	"marketing":   "Marketing Automation",
	"content":     "Content Generation",
}

// challengeKeywords maps pain-point keywords to canonical challenge labels,
// same matching rules as interestKeywords.
var challengeKeywords = map[string]string{
	"slow":           "Process Efficiency",
	"manual":         "Process Efficiency",
	"tedious":        "Process Efficiency",
	"time-consuming": "Process Efficiency",
	"expensive":      "Cost Reduction",
	"cost":           "Cost Reduction",
	"budget":         "Cost Reduction",
	"scale":          "Scaling Operations",
	"scaling":        "Scaling Operations",
	"growing":        "Scaling Operations",
	"errors":         "Quality & Accuracy",
	"mistakes":       "Quality & Accuracy",
	"overwhelmed":    "Team Capacity",
	"understaffed":   "Team Capacity",
}

// Extract enriches a lead with whatever one message reveals. It is pure: the
// prior lead is copied, never mutated, and the same inputs always produce the
// same output. Identity fields follow first-match-wins, so a second email in
// a later message never overwrites the one already captured.
//
// The returned field names identify what was newly discovered ("email",
// "name", "company", "role", "interest:<label>", "challenge:<label>") so the
// caller can emit analytics without the extractor doing I/O.
func Extract(message string, prior entities.Lead) (entities.Lead, []string) {
	updated := prior
	// The label sets must not alias the caller's slices or the sort inside
	// AddInterest could reorder them under the caller's feet.
	updated.Interests = append([]string(nil), prior.Interests...)
	updated.Challenges = append([]string(nil), prior.Challenges...)
	var discovered []string

	if updated.Email == "" {
		if match := emailPattern.FindString(message); match != "" {
			updated.Email = strings.ToLower(match)
			discovered = append(discovered, "email")
		}
	}

	if updated.Name == "" {
		for _, pattern := range namePatterns {
			if m := pattern.FindStringSubmatch(message); m != nil {
				updated.Name = m[1]
				discovered = append(discovered, "name")
				break
			}
		}
	}

	if updated.Company == "" {
		if m := companyPattern.FindStringSubmatch(message); m != nil {
			updated.Company = strings.TrimSpace(m[1])
			discovered = append(discovered, "company")
		}
	}

	if updated.Role == "" {
		if m := rolePattern.FindStringSubmatch(message); m != nil {
			updated.Role = strings.TrimSpace(m[1])
			discovered = append(discovered, "role")
		}
	}

	lower := strings.ToLower(message)
	for _, keyword := range sortedKeys(interestKeywords) {
		if strings.Contains(lower, keyword) && updated.AddInterest(interestKeywords[keyword]) {
			discovered = append(discovered, "interest:"+interestKeywords[keyword])
		}
	}
	for _, keyword := range sortedKeys(challengeKeywords) {
		if strings.Contains(lower, keyword) && updated.AddChallenge(challengeKeywords[keyword]) {
			discovered = append(discovered, "challenge:"+challengeKeywords[keyword])
		}
	}

	return updated, discovered
}

// sortedKeys keeps dictionary scans in a fixed order so the discovery list is
// deterministic for identical inputs.
func sortedKeys(dict map[string]string) []string {
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
