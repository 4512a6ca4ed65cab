package services

import (
	"github.com/google/uuid"
)

// Типы событий, которые рассылаются подписчикам турнира после коммита.
const (
	EventContestantAdded         = "CONTESTANT_ADDED"
	EventContestantWithdrawn     = "CONTESTANT_WITHDRAWN"
	EventMatchRecorded           = "MATCH_RECORDED"
	EventByeRegistered           = "BYE_REGISTERED"
	EventRoundAdvanced           = "ROUND_ADVANCED"
	EventTournamentStatusChanged = "TOURNAMENT_STATUS_CHANGED"
)

// EventPublisher доставляет события турнира (например, в WebSocket-комнату).
type EventPublisher interface {
	PublishTournamentEvent(tournamentID uuid.UUID, eventType string, payload interface{})
}

type Event struct {
	Type    string
	Payload interface{}
}

type RoundAdvancedPayload struct {
	Bracket string `json:"bracket,omitempty"`
	Round   int    `json:"round"`
}

type StatusChangedPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Outcome string `json:"outcome,omitempty"`
}

type noopPublisher struct{}

func (noopPublisher) PublishTournamentEvent(uuid.UUID, string, interface{}) {}
