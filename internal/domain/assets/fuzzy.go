package assets

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

var (
	digitRun       = regexp.MustCompile(`\d+`)
	parenthesized  = regexp.MustCompile(`[(（][^(（【】）)]*[)）]`)
	stopwordRunes  = regexp.MustCompile(`[卡银行储蓄借记]`)
	creditCardMark = "信用卡"
	countryPrefix  = "中国"
)

// FuzzyMatch finds the asset that best matches a free-text account name.
//
// A digit run in the input (a card suffix) is tried first. Otherwise the
// cleaned input is compared to each cleaned asset name by longest common
// contiguous substring; larger overlap wins, then the smaller leftover length
// of the candidate.
func FuzzyMatch(input string, assets []bill.AssetRecord) (string, bool) {
	number := longestDigitRun(input)
	if number != "" {
		inputBank := ExtractBank(input)
		for _, a := range assets {
			if !strings.Contains(a.Name, number) {
				continue
			}
			// Two banks' cards can share trailing digits
			if strings.Contains(a.Name, creditCardMark) && inputBank != "" && a.Bank != "" && a.Bank != inputBank {
				continue
			}
			return a.Name, true
		}
	}

	cleanInput := cleanText(input, number)
	var (
		bestName       string
		bestSimilarity int
		bestDiff       int
	)
	for _, a := range assets {
		cleanName := cleanText(a.Name, "")
		similarity := LongestCommonSubstring(cleanName, cleanInput)
		if similarity == 0 {
			continue
		}
		diff := utf8.RuneCountInString(cleanName) - similarity
		better := similarity > bestSimilarity || (similarity == bestSimilarity && diff < bestDiff)
		if !better {
			continue
		}
		if similarity == 2 && strings.HasPrefix(cleanInput, countryPrefix) {
			continue
		}
		bestName, bestSimilarity, bestDiff = a.Name, similarity, diff
	}

	return bestName, bestName != ""
}

func longestDigitRun(s string) string {
	longest := ""
	for _, run := range digitRun.FindAllString(s, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	return longest
}

func cleanText(s, number string) string {
	if number != "" {
		s = strings.ReplaceAll(s, number, "")
	}
	s = parenthesized.ReplaceAllString(s, "")
	s = stopwordRunes.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "支付", "")
	return strings.TrimSpace(s)
}

// LongestCommonSubstring returns the length in runes of the longest contiguous
// run shared by a and b.
func LongestCommonSubstring(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	longest := 0

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > longest {
					longest = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return longest
}
