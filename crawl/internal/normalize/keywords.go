package normalize

import "strings"

// CategoryGeneral is the fallback when no taxonomy keyword matches.
const CategoryGeneral = "general"

// categoryOrder fixes the match order. The first category with any
// keyword hit wins, so broader buckets sit later in the list.
var categoryOrder = []string{
	"attraction",
	"restaurant",
	"hotel",
	"transport",
	"activity",
	"shopping",
}

var categoryKeywords = map[string][]string{
	"attraction": {
		"museum", "gallery", "temple", "shrine", "castle", "palace",
		"cathedral", "basilica", "monument", "landmark", "park", "garden",
		"viewpoint", "sightseeing", "attraction", "ruins", "aquarium", "zoo",
	},
	"restaurant": {
		"restaurant", "dining", "cafe", "bistro", "eatery", "brunch",
		"street food", "food market", "cuisine", "michelin", "tapas",
		"izakaya", "trattoria",
	},
	"hotel": {
		"hotel", "hostel", "resort", "accommodation", "lodging",
		"guesthouse", "ryokan", "bed and breakfast", "where to stay",
		"apartment rental",
	},
	"transport": {
		"train", "metro", "subway", "tram", "bus route", "ferry",
		"airport", "flight", "taxi", "rail pass", "transit", "transport",
		"getting around",
	},
	"activity": {
		"tour", "hike", "hiking", "trek", "kayak", "snorkel", "diving",
		"cycling", "climbing", "surfing", "cruise", "excursion",
		"workshop", "cooking class", "safari",
	},
	"shopping": {
		"shopping", "market", "bazaar", "boutique", "mall", "souvenir",
		"flea market", "outlet", "artisan shop",
	},
}

// sentiment word lists for blog content. Deliberately simple keyword
// heuristics, not a model; occurrence counts decide the label.
var (
	positiveWords = []string{
		"amazing", "wonderful", "beautiful", "stunning", "fantastic",
		"excellent", "incredible", "breathtaking", "unforgettable",
		"delicious", "charming", "perfect", "highly recommend", "loved",
		"favorite", "must-see", "best",
	}
	negativeWords = []string{
		"terrible", "awful", "disappointing", "overpriced", "avoid",
		"worst", "dirty", "rude", "scam", "tourist trap", "horrible",
		"mediocre", "underwhelming", "overcrowded",
	}
	neutralWords = []string{
		"okay", "average", "decent", "standard", "typical", "ordinary",
		"acceptable", "fine",
	}
)

// SentimentNeutral is the default and tie-break sentiment label.
const SentimentNeutral = "neutral"

// Category tags text with the first taxonomy category whose keyword
// list matches title or content, or "general" when none do.
func Category(title, content string) string {
	text := strings.ToLower(title + " " + content)
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(text, kw) {
				return cat
			}
		}
	}
	return CategoryGeneral
}

// Sentiment labels blog text positive, negative, or neutral by keyword
// occurrence counts. Ties, including the all-zero case, stay neutral.
func Sentiment(text string) string {
	lower := strings.ToLower(text)
	pos := countOccurrences(lower, positiveWords)
	neg := countOccurrences(lower, negativeWords)
	neu := countOccurrences(lower, neutralWords)
	switch {
	case pos > neg && pos > neu:
		return "positive"
	case neg > pos && neg > neu:
		return "negative"
	default:
		return SentimentNeutral
	}
}

func countOccurrences(lower string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(lower, w)
	}
	return n
}

// Categories returns the taxonomy in match order, for schema docs and
// request validation.
func Categories() []string {
	out := make([]string, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}
