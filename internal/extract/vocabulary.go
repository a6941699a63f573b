package extract

import "strings"

// Vocabulary holds the lexicons the deterministic fallback path matches
// against: a known-brand list, a behavior-tag lexicon, and polarity/intent
// keyword classes (spec.md §4.3 step 2).
type Vocabulary struct {
	Brands map[string]string // lowercase alias -> canonical brand name
	Tags   map[string][]string // tag -> trigger phrases (lowercase)

	PositiveWords []string
	NegativeWords []string

	PurchaseVerbs     []string
	OwnershipVerbs    []string
	RecommendationCues []string
	ComplaintCues     []string
	SwitchCues        []string
}

// DefaultVocabulary is a small seed lexicon covering the worked examples in
// spec.md §8 and representative consumer-brand chatter. Operators extend it
// by editing this table or, eventually, by loading an override file the
// way internal/config reads optional YAML overrides.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Brands: map[string]string{
			"nike":      "Nike",
			"hoka":      "Hoka",
			"adidas":    "Adidas",
			"asics":     "Asics",
			"new balance": "New Balance",
			"brooks":   "Brooks",
			"on cloud": "On",
			"on running": "On",
			"saucony":  "Saucony",
			"lululemon": "Lululemon",
			"patagonia": "Patagonia",
			"rei":      "REI",
		},
		Tags: map[string][]string{
			"comfort":      {"comfortable", "comfy", "cushion", "cushioning", "plush"},
			"brand-switch": {"switched", "switched from", "instead of", "moved from"},
			"running":      {"running", "run", "marathon", "5k", "10k", "jog"},
			"durability":   {"durable", "held up", "falling apart", "wore out", "worn out"},
			"value":        {"worth it", "overpriced", "good price", "cheap", "expensive"},
			"fit":          {"true to size", "runs small", "runs large", "tight fit", "loose fit"},
		},
		PositiveWords:  []string{"love", "great", "amazing", "comfortable", "best", "perfect", "happy"},
		NegativeWords:  []string{"hate", "terrible", "awful", "disappointed", "worst", "broke", "uncomfortable"},
		PurchaseVerbs:  []string{"bought", "ordered", "purchased", "picked up", "grabbed a pair"},
		OwnershipVerbs: []string{"wearing", "wear", "own", "have had", "been using", "switched to"},
		RecommendationCues: []string{"recommend", "you should try", "worth trying", "check out"},
		ComplaintCues:  []string{"refund", "return", "complaint", "customer service", "never again"},
		SwitchCues:     []string{"switched", "instead of", "moved from", "used to wear"},
	}
}

// detectBrands scans text for any known alias, case-insensitively, and
// returns the canonical names found, de-duplicated.
func (v Vocabulary) detectBrands(lowerText string) []string {
	seen := map[string]bool{}
	var out []string
	for alias, canonical := range v.Brands {
		if strings.Contains(lowerText, alias) && !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	return out
}

func (v Vocabulary) detectTags(lowerText string) []string {
	var out []string
	for tag, phrases := range v.Tags {
		for _, phrase := range phrases {
			if strings.Contains(lowerText, phrase) {
				out = append(out, tag)
				break
			}
		}
	}
	return out
}

func containsAny(lowerText string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowerText, p) {
			return true
		}
	}
	return false
}
