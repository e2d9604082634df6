package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cinematch/pkg/types"
)

const posterBaseURL = "https://image.tmdb.org/t/p/w500"

// Config holds the remote catalog settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Language  string
	BatchSize int
	CacheTTL  time.Duration
}

// Client fetches popular movies from a TMDB-compatible API, caching results
// in memory. Every remote failure degrades to the embedded fallback set.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger

	mu       sync.Mutex
	cache    []types.Movie
	cachedAt time.Time
	byID     map[int]types.Movie // every movie ever served, for result lookups
}

// NewClient creates a catalog client. The fallback set is indexed eagerly so
// MovieByID works even before the first fetch.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With().Str("component", "catalog").Logger(),
		byID:       make(map[int]types.Movie, len(fallbackMovies)),
	}
	for _, movie := range fallbackMovies {
		c.byID[movie.ID] = movie
	}
	return c
}

// Configured reports whether a remote API key is present.
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Movies returns the candidate list for a new session. Genre filters go
// through the discover endpoint when the remote catalog is available, and
// through genre-name matching on the fallback set otherwise.
func (c *Client) Movies(ctx context.Context, genreIDs []int) []types.Movie {
	if c.Configured() {
		movies, err := c.fetch(ctx, genreIDs)
		if err == nil && len(movies) > 0 {
			return movies
		}
		if err != nil {
			c.logger.Warn().Err(err).Msg("remote catalog unavailable, using fallback set")
		}
	}
	return fallbackSet(genreIDs)
}

// MovieByID resolves metadata for any movie previously served, including the
// fallback set.
func (c *Client) MovieByID(id int) (types.Movie, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	movie, ok := c.byID[id]
	return movie, ok
}

func (c *Client) fetch(ctx context.Context, genreIDs []int) ([]types.Movie, error) {
	if len(genreIDs) == 0 {
		c.mu.Lock()
		if len(c.cache) >= c.cfg.BatchSize && time.Since(c.cachedAt) < c.cfg.CacheTTL {
			movies := append([]types.Movie(nil), c.cache[:c.cfg.BatchSize]...)
			c.mu.Unlock()
			return movies, nil
		}
		c.mu.Unlock()
	}

	movies, err := c.query(ctx, genreIDs)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if len(genreIDs) == 0 {
		c.cache = movies
		c.cachedAt = time.Now()
	}
	for _, movie := range movies {
		c.byID[movie.ID] = movie
	}
	c.mu.Unlock()

	c.logger.Info().Int("movies", len(movies)).Ints("genres", genreIDs).Msg("fetched catalog batch")
	return movies, nil
}

// tmdbMovie mirrors the subset of the TMDB payload the system uses.
type tmdbMovie struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	PosterPath  string  `json:"poster_path"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
	Overview    string  `json:"overview"`
	ReleaseDate string  `json:"release_date"`
	Runtime     int     `json:"runtime"`
}

type tmdbPage struct {
	Results      []tmdbMovie `json:"results"`
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int         `json:"total_results"`
}

func (c *Client) query(ctx context.Context, genreIDs []int) ([]types.Movie, error) {
	var movies []types.Movie

	for page := 1; len(movies) < c.cfg.BatchSize && page <= 5; page++ {
		results, err := c.queryPage(ctx, genreIDs, page)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			break
		}

		for _, raw := range results {
			if len(movies) >= c.cfg.BatchSize {
				break
			}
			// Skip movies without a poster; they render poorly as cards.
			if raw.PosterPath == "" {
				continue
			}
			movies = append(movies, c.convert(raw))
		}
	}

	return movies, nil
}

func (c *Client) queryPage(ctx context.Context, genreIDs []int, page int) ([]tmdbMovie, error) {
	endpoint := "/movie/popular"
	query := url.Values{}
	query.Set("api_key", c.cfg.APIKey)
	query.Set("language", c.cfg.Language)
	query.Set("page", strconv.Itoa(page))

	if len(genreIDs) > 0 {
		endpoint = "/discover/movie"
		ids := make([]string, len(genreIDs))
		for i, id := range genreIDs {
			ids[i] = strconv.Itoa(id)
		}
		query.Set("with_genres", strings.Join(ids, ","))
		query.Set("sort_by", "popularity.desc")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API returned status %d", resp.StatusCode)
	}

	var body tmdbPage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return body.Results, nil
}

func (c *Client) convert(raw tmdbMovie) types.Movie {
	genres := make([]string, 0, len(raw.GenreIDs))
	for _, id := range raw.GenreIDs {
		if name, ok := genreNames[id]; ok {
			genres = append(genres, name)
		}
	}

	releaseYear := 0
	if len(raw.ReleaseDate) >= 4 {
		releaseYear, _ = strconv.Atoi(raw.ReleaseDate[:4])
	}

	duration := raw.Runtime
	if duration == 0 {
		duration = 120 // list endpoints omit runtime
	}

	return types.Movie{
		ID:          raw.ID,
		Title:       raw.Title,
		PosterPath:  posterBaseURL + raw.PosterPath,
		Rating:      math.Round(raw.VoteAverage*10) / 10,
		Duration:    duration,
		Genres:      genres,
		Overview:    raw.Overview,
		ReleaseYear: releaseYear,
	}
}
