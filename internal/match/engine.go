// Package match aggregates a session's votes into a ranked result: a single
// unanimous pick when one exists, or the top 3 candidates otherwise.
package match

import (
	"slices"

	"cinematch/internal/catalog"
	"cinematch/internal/store"
	"cinematch/pkg/apperr"
	"cinematch/pkg/types"
)

// Engine computes match results. ComputeResult is a pure function of the
// votes recorded at call time; it can be re-run (for example on reconnect)
// without side effects.
type Engine struct {
	store   *store.Store
	catalog catalog.Provider
}

// NewEngine creates a match engine.
func NewEngine(entities *store.Store, movies catalog.Provider) *Engine {
	return &Engine{store: entities, catalog: movies}
}

type tally struct {
	movieID int
	yes     int
	total   int
}

// ComputeResult aggregates all recorded votes for the session.
//
// Every candidate's yes votes are measured against the full participant
// count, not just those who voted on it, so a movie skipped by a
// disconnected participant can never be reported as unanimous.
func (e *Engine) ComputeResult(sessionID string) (types.MatchResult, error) {
	session, ok := e.store.SessionByID(sessionID)
	if !ok {
		return types.MatchResult{}, apperr.SessionNotFound()
	}

	totalVoters := len(e.store.ParticipantsBySession(sessionID))
	votes := e.store.VotesBySession(sessionID)

	counts := make(map[int]*tally, len(session.MovieIDs))
	for _, movieID := range session.MovieIDs {
		counts[movieID] = &tally{movieID: movieID}
	}
	for _, vote := range votes {
		t, ok := counts[vote.MovieID]
		if !ok {
			continue
		}
		t.total++
		if vote.Choice == types.VoteYes {
			t.yes++
		}
	}

	// Movies nobody voted on are excluded from ranking.
	tallies := make([]tally, 0, len(counts))
	for _, movieID := range session.MovieIDs {
		if t := counts[movieID]; t.total > 0 {
			tallies = append(tallies, *t)
		}
	}

	if perfect := e.perfectMatches(tallies, totalVoters); len(perfect) > 0 {
		return types.MatchResult{
			Type:         types.ResultPerfectMatch,
			Match:        &perfect[0],
			OtherMatches: perfect[1:],
		}, nil
	}

	return types.MatchResult{
		Type:     types.ResultTopPicks,
		TopPicks: e.topPicks(tallies, totalVoters),
	}, nil
}

// perfectMatches returns the candidates every participant voted yes on,
// highest rated first. Rating ties break on candidate id so the primary
// match is deterministic.
func (e *Engine) perfectMatches(tallies []tally, totalVoters int) []types.Movie {
	var movies []types.Movie
	for _, t := range tallies {
		if totalVoters == 0 || t.yes != totalVoters {
			continue
		}
		if movie, ok := e.catalog.MovieByID(t.movieID); ok {
			movies = append(movies, movie)
		}
	}

	slices.SortFunc(movies, func(a, b types.Movie) int {
		if a.Rating != b.Rating {
			if a.Rating > b.Rating {
				return -1
			}
			return 1
		}
		return a.ID - b.ID
	})
	return movies
}

// topPicks ranks candidates by (ratio desc, yes votes desc, rating desc)
// and returns at most three entries.
func (e *Engine) topPicks(tallies []tally, totalVoters int) []types.ScoredMovie {
	scored := make([]types.ScoredMovie, 0, len(tallies))
	for _, t := range tallies {
		movie, ok := e.catalog.MovieByID(t.movieID)
		if !ok {
			continue
		}
		ratio := 0.0
		if totalVoters > 0 {
			ratio = float64(t.yes) / float64(totalVoters)
		}
		scored = append(scored, types.ScoredMovie{
			Movie:      movie,
			YesVotes:   t.yes,
			TotalVotes: totalVoters,
			Ratio:      ratio,
		})
	}

	slices.SortFunc(scored, func(a, b types.ScoredMovie) int {
		if a.Ratio != b.Ratio {
			if a.Ratio > b.Ratio {
				return -1
			}
			return 1
		}
		if a.YesVotes != b.YesVotes {
			return b.YesVotes - a.YesVotes
		}
		if a.Movie.Rating != b.Movie.Rating {
			if a.Movie.Rating > b.Movie.Rating {
				return -1
			}
			return 1
		}
		return a.Movie.ID - b.Movie.ID
	})

	if len(scored) > 3 {
		scored = scored[:3]
	}
	return scored
}
