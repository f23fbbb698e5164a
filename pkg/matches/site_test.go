package matches

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Fenerbahçe":          "fenerbahce",
		"Beşiktaş JK":         "besiktas-jk",
		"Atlético de Madrid":  "atletico-de-madrid",
		"  Bayern München  ":  "bayern-munchen",
		"Kasımpaşa":           "kasimpasa",
		"Brighton & Hove Alb": "brighton-hove-alb",
		"---":                 "",
	}
	for in, want := range cases {
		require.Equal(t, want, Slugify(in), in)
	}
}

func TestDetailURL(t *testing.T) {
	site := Site{BaseURL: "https://scores.example.com"}

	u, err := site.DetailURL("tr", "4711", "", "Galatasaray", "Fenerbahçe")
	require.NoError(t, err)
	require.Equal(t, "https://scores.example.com/tr/match/galatasaray-vs-fenerbahce/4711", u)

	u, err = site.DetailURL("en", "4711", "custom-slug", "A", "B")
	require.NoError(t, err)
	require.Equal(t, "https://scores.example.com/en/match/custom-slug/4711", u)

	u, err = site.DetailURL("en", "4711", "", "", "")
	require.NoError(t, err)
	require.Equal(t, "https://scores.example.com/en/match/4711", u)

	_, err = site.DetailURL("en", " ", "", "", "")
	require.Error(t, err)
}

func TestListURL(t *testing.T) {
	site := Site{BaseURL: "https://scores.example.com/base/", ListPath: "/{locale}/matches?day={view}"}
	u, err := site.ListURL("de", ViewTomorrow)
	require.NoError(t, err)
	require.Equal(t, "https://scores.example.com/base/de/matches?day=tomorrow", u)

	_, err = Site{BaseURL: "not a url"}.ListURL("en", ViewToday)
	require.Error(t, err)
}
