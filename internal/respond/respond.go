// Package respond is the canned-reply engine used when no live model
// connection is available. Replies are deterministic template text shaped by
// a persona heuristic and the lead's funnel stage. It is explicitly a
// stand-in, not an AI.
package respond

import (
	"strings"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

// Persona is a response-tone profile selected heuristically from what the
// lead has talked about.
type Persona string

const (
	PersonaTechnical  Persona = "technical"
	PersonaStrategist Persona = "strategist"
	PersonaConsultant Persona = "consultant"
	PersonaGeneral    Persona = "general"
)

var technicalKeywords = []string{
	"api", "integration", "code", "development", "implementation",
	"technical", "architecture", "database", "cloud", "engineer",
	"software", "machine learning",
}

var strategistKeywords = []string{
	"strategy", "strategic", "business", "roi", "revenue", "growth",
	"market", "roadmap", "leadership", "transformation", "budget",
	"investment", "stakeholder",
}

var consultantKeywords = []string{
	"advice", "recommend", "consult", "guidance", "help", "support",
	"options", "assessment", "evaluation", "analysis", "compare",
	"best practices",
}

// pagePersonas maps a site section to a default persona when the lead's
// interests give no signal.
var pagePersonas = map[string]Persona{
	"home":     PersonaGeneral,
	"services": PersonaConsultant,
	"about":    PersonaGeneral,
	"contact":  PersonaConsultant,
	"blog":     PersonaGeneral,
}

// SelectPersona picks a tone for the lead. The lead's interests and role are
// scanned against keyword buckets and the bucket with the most hits wins.
// With no hits the current page decides, and with no page signal either the
// persona is general.
func SelectPersona(lead entities.Lead, currentPage string) Persona {
	haystack := strings.ToLower(strings.Join(lead.Interests, " ") + " " + lead.Role)

	technical := countHits(haystack, technicalKeywords)
	strategist := countHits(haystack, strategistKeywords)
	consultant := countHits(haystack, consultantKeywords)

	switch {
	case technical > strategist && technical > consultant:
		return PersonaTechnical
	case strategist > technical && strategist > consultant:
		return PersonaStrategist
	case consultant > 0 && consultant >= technical && consultant >= strategist:
		return PersonaConsultant
	}

	if persona, ok := pagePersonas[strings.ToLower(strings.Trim(currentPage, "/"))]; ok {
		return persona
	}
	return PersonaGeneral
}

func countHits(haystack string, keywords []string) int {
	n := 0
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			n++
		}
	}
	return n
}

// personaClauses open the reply in the selected tone. The general persona
// contributes nothing beyond the greeting.
var personaClauses = map[Persona]string{
	PersonaStrategist: "From a strategic perspective, ",
	PersonaTechnical:  "Looking at the technical aspects, ",
	PersonaConsultant: "As a consultant, I'd advise that ",
}

// stageBodies are the default reply bodies per funnel stage.
var stageBodies = map[entities.LeadStage]string{
	entities.StageDiscovery:     "I'd like to understand more about your business needs. What specific challenges are you looking to address with AI automation?",
	entities.StageQualification: "Based on what you've shared, our AI solutions could help optimize your workflows. Would you like to know more about our specific services?",
	entities.StageInterested:    "I'm glad you're interested! Our AI automation services are tailored to your needs and typically start at $2,000 for a basic implementation. Would you like to schedule a consultation to discuss your specific requirements?",
	entities.StageEvaluation:    "Based on what you've shared, I believe our AI consulting services would be a good fit. Would you like to schedule a more detailed discussion with one of our specialists?",
	entities.StageDecision:      "We're excited about the possibility of working with you. Would you like to review a proposal or schedule a call with our implementation team?",
	entities.StageReadyToBook:   "Great! Let's schedule a consultation. Would you prefer a video call or phone call? Also, what times work best for you?",
}

const defaultBody = "How can I help you with AI automation today?"

// Generate produces a fallback assistant reply. Certain message keywords get
// a direct canned answer; everything else is greeting + persona clause +
// stage body. Same inputs, same output, every call.
func Generate(message string, lead entities.Lead, persona Persona) string {
	lower := strings.ToLower(message)

	if strings.Contains(lower, "pricing") || strings.Contains(lower, "cost") {
		return "Our pricing is customized based on your specific needs. For most clients, our AI integration services start at $5,000 for initial consultations and implementation. Would you like to discuss the details of your project to get a more accurate estimate?"
	}
	if strings.Contains(lower, "contact") || strings.Contains(lower, "speak") {
		return "I'd be happy to connect you with a consultant. You can book a call directly through our calendar or leave your contact information, and someone will reach out within 24 hours. Would you prefer to schedule a call now?"
	}
	if strings.Contains(lower, "service") || strings.Contains(lower, "offer") {
		interest := "AI"
		if len(lead.Interests) > 0 {
			interest = lead.Interests[0]
		}
		return "We offer a range of AI services including custom model development, integration with existing systems, workflow automation, and ongoing support. Based on your interest in " + interest + ", I'd recommend exploring our consulting services first. Would you like to learn more about that?"
	}

	var b strings.Builder
	if lead.Name != "" {
		b.WriteString("Hi " + lead.Name + "! ")
	}
	b.WriteString(personaClauses[persona])

	body, ok := stageBodies[lead.Stage]
	if !ok {
		body = defaultBody
	}
	b.WriteString(body)
	return b.String()
}

// SuggestReply proposes a next message for the user, driven by their most
// recent interest and otherwise by funnel stage.
func SuggestReply(lead entities.Lead) string {
	if len(lead.Interests) == 0 {
		return "Tell me more about your AI needs"
	}

	recent := strings.ToLower(lead.Interests[len(lead.Interests)-1])
	switch {
	case strings.Contains(recent, "integration"):
		return "How long does integration typically take?"
	case strings.Contains(recent, "analytics"):
		return "What metrics can you surface for us?"
	case strings.Contains(recent, "voice"):
		return "Can the voice assistant use our own recordings?"
	}

	switch lead.Stage {
	case entities.StageDiscovery:
		return "I'm interested in improving our customer service with AI"
	case entities.StageEvaluation:
		return "Could you provide some case studies?"
	case entities.StageDecision:
		return "I'd like to schedule a consultation"
	default:
		return "Tell me more about your services"
	}
}
