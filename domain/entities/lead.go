package entities

import (
	"sort"
	"strings"
	"time"
)

// LeadStage is a position in the sales funnel.
type LeadStage string

const (
	StageInitial        LeadStage = "initial"
	StageDiscovery      LeadStage = "discovery"
	StageQualification  LeadStage = "qualification"
	StageInterested     LeadStage = "interested"
	StageEvaluation     LeadStage = "evaluation"
	StageDecision       LeadStage = "decision"
	StageReadyToBook    LeadStage = "ready-to-book"
	StageImplementation LeadStage = "implementation"
	StageRetention      LeadStage = "retention"
)

// StageProgression is the fixed forward order of funnel stages. Leads advance
// along it and never regress automatically.
var StageProgression = []LeadStage{
	StageInitial,
	StageDiscovery,
	StageQualification,
	StageInterested,
	StageEvaluation,
	StageDecision,
	StageReadyToBook,
	StageImplementation,
	StageRetention,
}

// StageIndex returns the position of a stage in the progression, or -1 for an
// unknown stage.
func StageIndex(stage LeadStage) int {
	for i, s := range StageProgression {
		if s == stage {
			return i
		}
	}
	return -1
}

// Lead accumulates what the conversation has revealed about a prospective
// customer. Identity fields are write-once: the first extracted value wins and
// later candidates are ignored. Interests and Challenges are deduplicated sets
// of canonical labels merged across the whole conversation.
type Lead struct {
	Name    string    `json:"name,omitempty" bson:"name,omitempty"`
	Email   string    `json:"email,omitempty" bson:"email,omitempty"`
	Company string    `json:"company,omitempty" bson:"company,omitempty"`
	Role    string    `json:"role,omitempty" bson:"role,omitempty"`
	Stage   LeadStage `json:"stage" bson:"stage"`

	Interests  []string `json:"interests,omitempty" bson:"interests,omitempty"`
	Challenges []string `json:"challenges,omitempty" bson:"challenges,omitempty"`

	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// NewLead returns an empty lead at the initial stage.
func NewLead() Lead {
	return Lead{Stage: StageInitial}
}

// EmailDomain returns the domain part of the lead's email, lowercased. Leads
// are keyed by this for downstream analytics, so it is empty until an email
// has been captured.
func (l Lead) EmailDomain() string {
	at := strings.LastIndex(l.Email, "@")
	if at < 0 || at == len(l.Email)-1 {
		return ""
	}
	return strings.ToLower(l.Email[at+1:])
}

// AddInterest inserts a canonical interest label, ignoring duplicates.
// Reports whether the set changed.
func (l *Lead) AddInterest(label string) bool {
	return addLabel(&l.Interests, label)
}

// AddChallenge inserts a canonical challenge label, ignoring duplicates.
// Reports whether the set changed.
func (l *Lead) AddChallenge(label string) bool {
	return addLabel(&l.Challenges, label)
}

func addLabel(set *[]string, label string) bool {
	for _, existing := range *set {
		if existing == label {
			return false
		}
	}
	*set = append(*set, label)
	// Insertion order is irrelevant; keep the set sorted so equality checks
	// and stored documents are stable.
	sort.Strings(*set)
	return true
}

// HasContact reports whether the lead is worth exporting: an email is the
// minimum for a usable record.
func (l Lead) HasContact() bool {
	return l.Email != ""
}
