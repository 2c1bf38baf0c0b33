package lead

import (
	"strings"

	"github.com/fbconsulting/leadpilot/domain/entities"
)

// DetermineStage maps a conversation's user-message count onto a funnel
// stage. A fixed staircase, documented as a simple heuristic rather than a
// learned model.
func DetermineStage(messageCount int) entities.LeadStage {
	switch {
	case messageCount > 15:
		return entities.StageDecision
	case messageCount > 10:
		return entities.StageEvaluation
	case messageCount > 5:
		return entities.StageDiscovery
	case messageCount > 3:
		return entities.StageQualification
	case messageCount > 1:
		return entities.StageInterested
	default:
		return entities.StageInitial
	}
}

// Advance moves a lead forward in the funnel.
//
// A booking request wins unconditionally and forces ready-to-book. An
// explicit stage, when given, is set directly. Otherwise the lead moves one
// step along the fixed progression. A lead never regresses automatically.
func Advance(current entities.LeadStage, explicit entities.LeadStage, bookingRequested bool) entities.LeadStage {
	if bookingRequested {
		return entities.StageReadyToBook
	}
	if explicit != "" {
		return explicit
	}
	idx := entities.StageIndex(current)
	if idx < 0 {
		return entities.StageInitial
	}
	if idx+1 < len(entities.StageProgression) {
		return entities.StageProgression[idx+1]
	}
	return current
}

// bookingSignals are phrases that indicate the user wants to schedule a
// consultation.
var bookingSignals = []string{
	"book",
	"schedule",
	"appointment",
	"consultation",
	"calendar",
}

// BookingRequested scans a message for explicit scheduling intent.
func BookingRequested(message string) bool {
	lower := strings.ToLower(message)
	for _, signal := range bookingSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}

// UpdateStage recomputes a lead's stage after a message: the message-count
// heuristic supplies a candidate, booking intent overrides it, and the result
// only ever moves the lead forward.
func UpdateStage(lead entities.Lead, message string, userMessageCount int) entities.LeadStage {
	if BookingRequested(message) {
		return entities.StageReadyToBook
	}
	candidate := DetermineStage(userMessageCount)
	if entities.StageIndex(candidate) > entities.StageIndex(lead.Stage) {
		return candidate
	}
	return lead.Stage
}
