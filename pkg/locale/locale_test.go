package locale

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"tr-TR": "tr",
		"EN_us": "en",
		" de ":  "de",
		"":      DefaultCode,
	}
	for in, want := range cases {
		require.Equal(t, want, Normalize(in), in)
	}
}

func TestLookupFallsBackToDefault(t *testing.T) {
	require.Equal(t, "tr", Lookup("tr-TR").Code)
	require.Equal(t, DefaultCode, Lookup("xx").Code)
	require.False(t, Supported("xx"))
	require.True(t, Supported("es-MX"))
	require.Contains(t, Codes(), "tr")
	require.Contains(t, Codes(), DefaultCode)
}

func TestValid(t *testing.T) {
	for _, code := range []string{"tr", "en-GB", "", "xx", "fil"} {
		require.True(t, Valid(code), code)
	}
	for _, code := range []string{"../x", "..", "t/r", "english", "e1"} {
		require.False(t, Valid(code), code)
	}
}

func TestChain(t *testing.T) {
	chain := Chain("tr")
	require.Len(t, chain, 2)
	require.Equal(t, "tr", chain[0].Code)
	require.Equal(t, DefaultCode, chain[1].Code)

	require.Len(t, Chain("en-GB"), 1)
	require.Len(t, Chain("zz"), 1)
}

func TestHeadingCandidatesPrimaryFirst(t *testing.T) {
	got := HeadingCandidates("tr", SectionUpcomingMatches)
	require.Equal(t, "Yaklaşan Maçlar", got[0])
	require.Contains(t, got, "Upcoming Matches")

	en := HeadingCandidates("en", SectionHeadToHead)
	require.Equal(t, []string{"Head to Head", "Head-to-Head", "H2H"}, en)
}

func TestTabLabels(t *testing.T) {
	l := Lookup("tr")
	require.Equal(t, []string{"Yarın"}, l.TabLabels("tomorrow"))
	require.Equal(t, []string{"Bugün"}, l.TabLabels("today"))
}

func TestFold(t *testing.T) {
	require.Equal(t, "one cikan tahminler", Fold("  ÖNE  ÇIKAN TAHMİNLER "))
	require.True(t, ContainsFold("Próximos Partidos (3)", "proximos partidos"))
	require.False(t, ContainsFold("anything", ""))
}

func TestMatchPhraseNumbersAreWholeWords(t *testing.T) {
	require.True(t, MatchPhrase("404 | Scores", "404"))
	require.True(t, MatchPhrase("Error 404: Not Found", "404"))
	require.False(t, MatchPhrase("Match 140412 | Scores", "404"))
	require.False(t, MatchPhrase("Galatasaray - Fenerbahçe 4041", "404"))
	require.True(t, MatchPhrase("Sayfa Bulunamadı", "sayfa bulunamadı"))
}
