package catalog

import (
	"strings"

	"cinematch/pkg/types"
)

// fallbackSet returns the embedded movies, filtered by genre when requested.
// An empty filter result falls through to the full list so sessions always
// get candidates.
func fallbackSet(genreIDs []int) []types.Movie {
	movies := append([]types.Movie(nil), fallbackMovies...)
	if len(genreIDs) == 0 {
		return movies
	}

	wanted := make(map[string]bool, len(genreIDs))
	for _, id := range genreIDs {
		if name, ok := genreNames[id]; ok {
			wanted[strings.ToLower(name)] = true
		}
	}

	var filtered []types.Movie
	for _, movie := range movies {
		for _, genre := range movie.Genres {
			if wanted[strings.ToLower(genre)] {
				filtered = append(filtered, movie)
				break
			}
		}
	}

	if len(filtered) == 0 {
		return movies
	}
	return filtered
}

// fallbackMovies is the fixed candidate set served when the remote catalog
// is unavailable. Ids are stable so votes stay valid across fetch failures.
var fallbackMovies = []types.Movie{
	{ID: 1, Title: "Inception", PosterPath: posterBaseURL + "/9gk7adHYeDvHkCSEqAvQNLV5Ber.jpg", Rating: 8.8, Duration: 148, Genres: []string{"Sci-Fi", "Action", "Thriller"}, Overview: "A thief who steals corporate secrets through the use of dream-sharing technology is given the inverse task of planting an idea into the mind of a C.E.O."},
	{ID: 2, Title: "The Grand Budapest Hotel", PosterPath: posterBaseURL + "/eWdyYQreja6JGCzqHWXpWHDrrPo.jpg", Rating: 8.1, Duration: 99, Genres: []string{"Comedy", "Adventure", "Drama"}, Overview: "A writer encounters the owner of a decaying high-class hotel, who tells him of his early years serving as a lobby boy under an exceptional concierge."},
	{ID: 3, Title: "Spider-Man: Across the Spider-Verse", PosterPath: posterBaseURL + "/8Vt6mWEReuy4Of61Lnj5Xj704m8.jpg", Rating: 8.7, Duration: 140, Genres: []string{"Animation", "Action", "Adventure"}, Overview: "Miles Morales catapults across the Multiverse, where he encounters a team of Spider-People charged with protecting its very existence."},
	{ID: 4, Title: "La La Land", PosterPath: posterBaseURL + "/uDO8zWDhfWwoFdKS4fzkUJt0Rf0.jpg", Rating: 8.0, Duration: 128, Genres: []string{"Music", "Romance", "Drama"}, Overview: "While navigating their careers in Los Angeles, a pianist and an actress fall in love while attempting to reconcile their aspirations for the future."},
	{ID: 5, Title: "Everything Everywhere All at Once", PosterPath: posterBaseURL + "/w3LxiVYdWWRvEVdn5RYq6jIqkb1.jpg", Rating: 7.8, Duration: 139, Genres: []string{"Adventure", "Sci-Fi", "Comedy"}, Overview: "A middle-aged immigrant is swept up into an insane adventure in which she alone can save existence by exploring other universes."},
	{ID: 6, Title: "The Dark Knight", PosterPath: posterBaseURL + "/qJ2tW6WMUDux911r6m7haRef0WH.jpg", Rating: 9.0, Duration: 152, Genres: []string{"Action", "Crime", "Drama"}, Overview: "When the menace known as the Joker wreaks havoc on Gotham, Batman must accept one of the greatest psychological and physical tests of his ability to fight injustice."},
	{ID: 7, Title: "Parasite", PosterPath: posterBaseURL + "/7IiTTgloJzvGI1TAYymCfbfl3vT.jpg", Rating: 8.5, Duration: 132, Genres: []string{"Thriller", "Drama", "Comedy"}, Overview: "Greed and class discrimination threaten the newly formed symbiotic relationship between the wealthy Park family and the destitute Kim clan."},
	{ID: 8, Title: "Interstellar", PosterPath: posterBaseURL + "/gEU2QniE6E77NI6lCU6MxlNBvIx.jpg", Rating: 8.6, Duration: 169, Genres: []string{"Sci-Fi", "Adventure", "Drama"}, Overview: "A team of explorers travel through a wormhole in space in an attempt to ensure humanity's survival."},
	{ID: 9, Title: "The Shawshank Redemption", PosterPath: posterBaseURL + "/q6y0Go1tsGEsmtFryDOJo3dEmqu.jpg", Rating: 9.3, Duration: 142, Genres: []string{"Drama", "Crime"}, Overview: "Two imprisoned men bond over a number of years, finding solace and eventual redemption through acts of common decency."},
	{ID: 10, Title: "Pulp Fiction", PosterPath: posterBaseURL + "/d5iIlFn5s0ImszYzBPb8JPIfbXD.jpg", Rating: 8.9, Duration: 154, Genres: []string{"Crime", "Drama", "Comedy"}, Overview: "The lives of two mob hitmen, a boxer, a gangster and his wife intertwine in four tales of violence and redemption."},
	{ID: 11, Title: "Whiplash", PosterPath: posterBaseURL + "/7fn624j5lj3xTme2SgiLCeuedmO.jpg", Rating: 8.5, Duration: 107, Genres: []string{"Drama", "Music"}, Overview: "A promising young drummer enrolls at a cut-throat music conservatory where his dreams of greatness are mentored by an instructor who will stop at nothing."},
	{ID: 12, Title: "The Matrix", PosterPath: posterBaseURL + "/f89U3ADr1oiB1s9GkdPOEpXUk5H.jpg", Rating: 8.7, Duration: 136, Genres: []string{"Sci-Fi", "Action"}, Overview: "A computer hacker learns from mysterious rebels about the true nature of his reality and his role in the war against its controllers."},
	{ID: 13, Title: "Coco", PosterPath: posterBaseURL + "/gGEsBPAijhVUFoiNpgZXqRVWJt2.jpg", Rating: 8.4, Duration: 105, Genres: []string{"Animation", "Family", "Fantasy"}, Overview: "Aspiring musician Miguel, confronted with his family's ancestral ban on music, enters the Land of the Dead to find his great-great-grandfather."},
	{ID: 14, Title: "Spirited Away", PosterPath: posterBaseURL + "/39wmItIWsg5sZMyRUHLkWBcuVCM.jpg", Rating: 8.6, Duration: 125, Genres: []string{"Animation", "Fantasy", "Adventure"}, Overview: "During her family's move to the suburbs, a sullen 10-year-old girl wanders into a world ruled by gods, witches, and spirits."},
	{ID: 15, Title: "The Godfather", PosterPath: posterBaseURL + "/3bhkrj58Vtu7enYsRolD1fZdja1.jpg", Rating: 9.2, Duration: 175, Genres: []string{"Crime", "Drama"}, Overview: "The aging patriarch of an organized crime dynasty transfers control of his clandestine empire to his reluctant son."},
	{ID: 16, Title: "Dune", PosterPath: posterBaseURL + "/d5NXSklXo0qyIYkgV94XAgMIckC.jpg", Rating: 8.0, Duration: 155, Genres: []string{"Sci-Fi", "Adventure", "Drama"}, Overview: "Paul Atreides, a brilliant and gifted young man, must travel to the most dangerous planet in the universe to ensure the future of his family and his people."},
	{ID: 17, Title: "Oppenheimer", PosterPath: posterBaseURL + "/8Gxv8gSFCU0XGDykEGv7zR1n2ua.jpg", Rating: 8.5, Duration: 180, Genres: []string{"Drama", "History"}, Overview: "The story of J. Robert Oppenheimer's role in the development of the atomic bomb during World War II."},
	{ID: 18, Title: "Get Out", PosterPath: posterBaseURL + "/tFXcEccSQMf3lfhfXKSU9iRBpa3.jpg", Rating: 7.7, Duration: 104, Genres: []string{"Horror", "Thriller", "Mystery"}, Overview: "A young African-American visits his white girlfriend's parents for the weekend, where his simmering uneasiness about their reception of him eventually reaches a boiling point."},
	{ID: 19, Title: "Barbie", PosterPath: posterBaseURL + "/iuFNMS8U5cb6xfzi51Dbkovj7vM.jpg", Rating: 7.0, Duration: 114, Genres: []string{"Comedy", "Adventure", "Fantasy"}, Overview: "Barbie suffers a crisis that leads her to question her world and her existence."},
	{ID: 20, Title: "Your Name", PosterPath: posterBaseURL + "/q719jXXEzOoYaps6babgKnONONX.jpg", Rating: 8.4, Duration: 106, Genres: []string{"Animation", "Romance", "Fantasy"}, Overview: "High schoolers Mitsuha and Taki are complete strangers living separate lives. But one night, they suddenly switch places."},
}
