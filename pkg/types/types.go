// Package types holds the domain model shared by every component: sessions,
// participants, votes, movies, and the match result variants sent to clients.
package types

import (
	"time"
)

// SessionStatus is the lifecycle phase of a session.
// Transitions are one-way: waiting -> voting -> finished.
type SessionStatus string

const (
	StatusWaiting  SessionStatus = "waiting"
	StatusVoting   SessionStatus = "voting"
	StatusFinished SessionStatus = "finished"
)

// VoteChoice is a participant's yes/no decision on a single candidate.
type VoteChoice string

const (
	VoteYes VoteChoice = "yes"
	VoteNo  VoteChoice = "no"
)

// Session is one matching party. The candidate list is fixed at creation and
// never mutated afterwards; only Status changes over the session's lifetime.
type Session struct {
	ID        string        `json:"id"`
	Code      string        `json:"code"`
	Status    SessionStatus `json:"status"`
	HostID    string        `json:"hostId"`
	MovieIDs  []int         `json:"movieIds"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Participant is one member of a session. ConnID is the current connection
// handle; empty means currently disconnected, not removed. A participant
// outlives its connection and is only deleted on explicit leave.
type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SessionID string `json:"sessionId"`
	Host      bool   `json:"isHost"`
	Progress  int    `json:"progress"`
	Finished  bool   `json:"hasFinished"`
	ConnID    string `json:"-"`
}

// Info projects a participant to the fields clients may see. Connection
// handles and session internals are never exposed.
func (p Participant) Info() ParticipantInfo {
	return ParticipantInfo{
		ID:       p.ID,
		Name:     p.Name,
		Host:     p.Host,
		Progress: p.Progress,
		Finished: p.Finished,
	}
}

// ParticipantInfo is the public projection of a participant.
type ParticipantInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Host     bool   `json:"isHost"`
	Progress int    `json:"progress"`
	Finished bool   `json:"hasFinished"`
}

// Vote records a single yes/no decision. At most one vote ever exists per
// (participant, movie) pair.
type Vote struct {
	ID            string     `json:"id"`
	ParticipantID string     `json:"userId"`
	SessionID     string     `json:"sessionId"`
	MovieID       int        `json:"movieId"`
	Choice        VoteChoice `json:"vote"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Movie is a catalog candidate. Data correctness is the catalog provider's
// concern; the matching engine only relies on ID and Rating.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	PosterPath  string   `json:"posterPath"`
	Rating      float64  `json:"rating"`
	Duration    int      `json:"duration"`
	Genres      []string `json:"genres"`
	Overview    string   `json:"overview"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
}

// Match result variants.
const (
	ResultPerfectMatch = "perfect_match"
	ResultTopPicks     = "top_picks"
)

// MatchResult is the tagged outcome of match aggregation: either a perfect
// match (every participant voted yes) with secondary matches, or the top 3
// ranked candidates.
type MatchResult struct {
	Type         string        `json:"type"`
	Match        *Movie        `json:"match,omitempty"`
	OtherMatches []Movie       `json:"otherMatches,omitempty"`
	TopPicks     []ScoredMovie `json:"topPicks,omitempty"`
}

// ScoredMovie is one top-picks entry with its tally.
type ScoredMovie struct {
	Movie      Movie   `json:"movie"`
	YesVotes   int     `json:"yesVotes"`
	TotalVotes int     `json:"totalVotes"`
	Ratio      float64 `json:"ratio"`
}
