// Package locale holds the per-language labels and heading phrases used to
// anchor extraction on the source site.
//
// Lookups are keyed by the normalized base-language code ("tr-TR" -> "tr").
// The fallback chain is: requested base code, then DefaultCode. A caller that
// needs "try the primary locale, then the default" asks for Chain(code).
package locale

import (
	"regexp"
	"sort"
	"strings"
)

// DefaultCode is the last entry of every fallback chain.
const DefaultCode = "en"

// Section names a heading-anchored section of the detail page.
type Section string

const (
	SectionHighlightPredictions Section = "highlightPredictions"
	SectionDetailPredictions    Section = "detailPredictions"
	SectionOddsTrends           Section = "oddsTrends"
	SectionUpcomingMatches      Section = "upcomingMatches"
	SectionRecentForm           Section = "recentForm"
	SectionHeadToHead           Section = "headToHead"
)

// Labels is everything locale-specific the scrapers need.
type Labels struct {
	Code string

	TodayTab    []string
	TomorrowTab []string

	// FormTab is the secondary tab that reveals recent form and head-to-head.
	FormTab []string

	Headings map[Section][]string

	NotFound []string
}

var table = map[string]Labels{
	"en": {
		Code:        "en",
		TodayTab:    []string{"Today"},
		TomorrowTab: []string{"Tomorrow"},
		FormTab:     []string{"Form", "Stats", "H2H"},
		Headings: map[Section][]string{
			SectionHighlightPredictions: {"Highlight Predictions", "Top Predictions", "Featured Tips"},
			SectionDetailPredictions:    {"Detailed Predictions", "All Predictions", "Prediction Details"},
			SectionOddsTrends:           {"Odds Trends", "Odds Movement", "Odds History"},
			SectionUpcomingMatches:      {"Upcoming Matches", "Next Matches", "Upcoming Fixtures"},
			SectionRecentForm:           {"Recent Form", "Last Matches", "Form Guide"},
			SectionHeadToHead:           {"Head to Head", "Head-to-Head", "H2H"},
		},
		NotFound: []string{"page not found", "404", "match not found", "no longer available"},
	},
	"tr": {
		Code:        "tr",
		TodayTab:    []string{"Bugün"},
		TomorrowTab: []string{"Yarın"},
		FormTab:     []string{"Form", "İstatistik", "Karşılaştırma"},
		Headings: map[Section][]string{
			SectionHighlightPredictions: {"Öne Çıkan Tahminler", "Öne Çıkan Tahmin"},
			SectionDetailPredictions:    {"Detaylı Tahminler", "Tüm Tahminler"},
			SectionOddsTrends:           {"Oran Trendleri", "Oran Hareketleri"},
			SectionUpcomingMatches:      {"Yaklaşan Maçlar", "Sonraki Maçlar"},
			SectionRecentForm:           {"Son Maçlar", "Form Durumu"},
			SectionHeadToHead:           {"Aralarındaki Maçlar", "Karşılıklı Maçlar"},
		},
		NotFound: []string{"sayfa bulunamadı", "maç bulunamadı", "404"},
	},
	"es": {
		Code:        "es",
		TodayTab:    []string{"Hoy"},
		TomorrowTab: []string{"Mañana"},
		FormTab:     []string{"Forma", "Estadísticas"},
		Headings: map[Section][]string{
			SectionHighlightPredictions: {"Pronósticos destacados", "Predicciones destacadas"},
			SectionDetailPredictions:    {"Pronósticos detallados", "Predicciones detalladas"},
			SectionOddsTrends:           {"Tendencias de cuotas", "Evolución de cuotas"},
			SectionUpcomingMatches:      {"Próximos partidos"},
			SectionRecentForm:           {"Forma reciente", "Últimos partidos"},
			SectionHeadToHead:           {"Enfrentamientos directos", "Cara a cara"},
		},
		NotFound: []string{"página no encontrada", "partido no encontrado", "404"},
	},
	"de": {
		Code:        "de",
		TodayTab:    []string{"Heute"},
		TomorrowTab: []string{"Morgen"},
		FormTab:     []string{"Form", "Statistiken"},
		Headings: map[Section][]string{
			SectionHighlightPredictions: {"Top-Tipps", "Hervorgehobene Prognosen"},
			SectionDetailPredictions:    {"Detaillierte Prognosen", "Alle Prognosen"},
			SectionOddsTrends:           {"Quotentrends", "Quotenentwicklung"},
			SectionUpcomingMatches:      {"Kommende Spiele", "Nächste Spiele"},
			SectionRecentForm:           {"Aktuelle Form", "Letzte Spiele"},
			SectionHeadToHead:           {"Direkter Vergleich"},
		},
		NotFound: []string{"seite nicht gefunden", "spiel nicht gefunden", "404"},
	},
	"fr": {
		Code:        "fr",
		TodayTab:    []string{"Aujourd'hui"},
		TomorrowTab: []string{"Demain"},
		FormTab:     []string{"Forme", "Statistiques"},
		Headings: map[Section][]string{
			SectionHighlightPredictions: {"Pronostics à la une", "Pronostics phares"},
			SectionDetailPredictions:    {"Pronostics détaillés", "Tous les pronostics"},
			SectionOddsTrends:           {"Tendances des cotes", "Évolution des cotes"},
			SectionUpcomingMatches:      {"Prochains matchs"},
			SectionRecentForm:           {"Forme récente", "Derniers matchs"},
			SectionHeadToHead:           {"Face-à-face", "Confrontations directes"},
		},
		NotFound: []string{"page introuvable", "match introuvable", "404"},
	},
}

// Normalize reduces a locale tag to its lowercase base-language code.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i >= 0 {
		code = code[:i]
	}
	if code == "" {
		return DefaultCode
	}
	return code
}

// Lookup returns the labels for code, falling back to DefaultCode when the
// language is unknown. The returned Code reports which entry was used.
func Lookup(code string) Labels {
	if l, ok := table[Normalize(code)]; ok {
		return l
	}
	return table[DefaultCode]
}

// Chain returns the fallback chain for code without duplicates.
func Chain(code string) []Labels {
	primary := Lookup(code)
	if primary.Code == DefaultCode {
		return []Labels{primary}
	}
	return []Labels{primary, table[DefaultCode]}
}

var codeRe = regexp.MustCompile(`^[a-z]{2,3}$`)

// Valid reports whether code normalizes to a plausible base-language code.
// Unknown but valid codes still work through the fallback chain.
func Valid(code string) bool {
	return codeRe.MatchString(Normalize(code))
}

// Supported reports whether code has its own entry.
func Supported(code string) bool {
	_, ok := table[Normalize(code)]
	return ok
}

// Codes lists every code with its own entry, sorted.
func Codes() []string {
	out := make([]string, 0, len(table))
	for code := range table {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// TabLabels returns the tab captions for a view name ("today"/"tomorrow").
func (l Labels) TabLabels(view string) []string {
	if view == "tomorrow" {
		return l.TomorrowTab
	}
	return l.TodayTab
}

// HeadingCandidates merges the section phrases across the fallback chain,
// primary locale first.
func HeadingCandidates(code string, section Section) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range Chain(code) {
		for _, h := range l.Headings[section] {
			k := strings.ToLower(h)
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, h)
		}
	}
	return out
}

// NotFoundPhrases merges the not-found signals across the fallback chain.
func NotFoundPhrases(code string) []string {
	var out []string
	seen := map[string]bool{}
	for _, l := range Chain(code) {
		for _, p := range l.NotFound {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}
