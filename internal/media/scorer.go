package media

import (
	"sort"
	"strings"

	"asset-catalog/internal/mediatypes"
)

// Candidate is an image considered as a thumbnail source.
type Candidate struct {
	Name string // file name or slash path inside an archive
	Size int64
}

type keywordBonus struct {
	word  string
	bonus float64
}

var nameBonuses = []keywordBonus{
	{"render", 100},
	{"preview", 80},
	{"main", 70},
	{"thumb", 60},
}

// folderKeywords short-circuit PickFolder.
var folderKeywords = []string{"render", "preview", "display", "screenshot"}

// Score rates an image by name keywords plus its size in MiB. Bonuses stack
// and are matched case-insensitively anywhere in name.
func Score(name string, size int64) float64 {
	lower := strings.ToLower(name)

	var score float64
	for _, kb := range nameBonuses {
		if strings.Contains(lower, kb.word) {
			score += kb.bonus
		}
	}
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		score += 10
	}
	return score + float64(size)/(1<<20)
}

// IsImageName reports whether name has a supported image extension.
func IsImageName(name string) bool {
	return mediatypes.IsImage(name)
}

// Rank orders candidates best first. Candidates with equal scores keep
// their input order.
func Rank(cands []Candidate) []Candidate {
	ranked := make([]Candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Score(ranked[i].Name, ranked[i].Size) > Score(ranked[j].Name, ranked[j].Size)
	})
	return ranked
}

// PickBest returns the highest scoring candidate; the first wins a tie.
func PickBest(cands []Candidate) (Candidate, bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	best := cands[0]
	bestScore := Score(best.Name, best.Size)
	for _, c := range cands[1:] {
		if s := Score(c.Name, c.Size); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, true
}

// PickFolder returns the first candidate whose name mentions render,
// preview, display or screenshot, and otherwise falls back to PickBest.
func PickFolder(cands []Candidate) (Candidate, bool) {
	if c, ok := FirstKeyword(cands); ok {
		return c, true
	}
	return PickBest(cands)
}

// FirstKeyword returns the first candidate carrying a folder keyword.
func FirstKeyword(cands []Candidate) (Candidate, bool) {
	for _, c := range cands {
		lower := strings.ToLower(c.Name)
		for _, kw := range folderKeywords {
			if strings.Contains(lower, kw) {
				return c, true
			}
		}
	}
	return Candidate{}, false
}
