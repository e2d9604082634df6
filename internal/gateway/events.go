package gateway

import (
	"encoding/json"
	"fmt"

	"cinematch/pkg/types"
)

// Inbound event types. The set is closed: anything else is rejected at the
// channel boundary before it can reach a service.
const (
	EventJoinSession  = "join-session"
	EventStartVoting  = "start-voting"
	EventSubmitVote   = "submit-vote"
	EventLeaveSession = "leave-session"
	EventForceFinish  = "force-finish"
)

// Outbound event types.
const (
	EventParticipantList = "participant-list-updated"
	EventVotingStarted   = "voting-started"
	EventProgress        = "participant-progress"
	EventMatchResult     = "match-result"
	EventError           = "error"
)

// Inbound is the decoded client message envelope. Fields beyond Type are
// populated per event type and validated by decodeInbound.
type Inbound struct {
	Type          string           `json:"type"`
	RoomCode      string           `json:"roomCode"`
	ParticipantID string           `json:"userId"`
	MovieID       int              `json:"movieId"`
	Choice        types.VoteChoice `json:"choice"`
}

// decodeInbound parses and validates one client frame.
func decodeInbound(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("malformed event payload: %w", err)
	}

	switch msg.Type {
	case EventJoinSession, EventStartVoting, EventLeaveSession, EventForceFinish:
		if msg.RoomCode == "" || msg.ParticipantID == "" {
			return Inbound{}, fmt.Errorf("%s requires roomCode and userId", msg.Type)
		}
	case EventSubmitVote:
		if msg.RoomCode == "" || msg.ParticipantID == "" {
			return Inbound{}, fmt.Errorf("%s requires roomCode and userId", msg.Type)
		}
		if !types.IsValidChoice(msg.Choice) {
			return Inbound{}, fmt.Errorf("choice must be %q or %q", types.VoteYes, types.VoteNo)
		}
	default:
		return Inbound{}, fmt.Errorf("%w: %q", ErrUnknownEventType, msg.Type)
	}

	return msg, nil
}

// Outbound payloads. Each message carries its type tag so clients can switch
// on a single field.

type participantListMsg struct {
	Type  string                  `json:"type"`
	Users []types.ParticipantInfo `json:"users"`
}

type votingStartedMsg struct {
	Type string `json:"type"`
}

type progressMsg struct {
	Type          string `json:"type"`
	ParticipantID string `json:"userId"`
	Progress      int    `json:"progress"`
	Finished      bool   `json:"hasFinished"`
}

type matchResultMsg struct {
	Type   string            `json:"type"`
	Result types.MatchResult `json:"result"`
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"error"`
	Code    string `json:"code"`
}
