// Package catalog supplies the candidate movie lists that sessions vote on.
// The provider contract is that it never fails: when the remote catalog is
// unconfigured or unreachable, it serves the embedded fallback set.
package catalog

import (
	"context"

	"cinematch/pkg/types"
)

// Provider is the external-catalog boundary the session and match engines
// depend on.
type Provider interface {
	// Movies returns the candidate list, optionally filtered by genre ids.
	// It always returns a non-empty list.
	Movies(ctx context.Context, genreIDs []int) []types.Movie

	// MovieByID resolves a candidate id to its metadata.
	MovieByID(id int) (types.Movie, bool)
}

// Genre id to name mapping, shared by the remote client and the fallback
// filter. Ids follow the TMDB genre taxonomy.
var genreNames = map[int]string{
	28:    "Action",
	12:    "Adventure",
	16:    "Animation",
	35:    "Comedy",
	80:    "Crime",
	99:    "Documentary",
	18:    "Drama",
	10751: "Family",
	14:    "Fantasy",
	36:    "History",
	27:    "Horror",
	10402: "Music",
	9648:  "Mystery",
	10749: "Romance",
	878:   "Sci-Fi",
	53:    "Thriller",
	10752: "War",
	37:    "Western",
}
