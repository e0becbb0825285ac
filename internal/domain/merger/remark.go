package merger

import (
	"strings"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

// DefaultRemarkTemplate is used when no template is configured
const DefaultRemarkTemplate = "【商户名称】【商品名称】"

// RemarkTimeLayout formats the 【时间】 placeholder
const RemarkTimeLayout = "2006-01-02 15:04:05"

// joint separates shop name and shop item during joint normalization. It
// must not contain any repeated two-rune substring itself.
const joint = "/=@=/"

// AppNamer resolves an app identifier to a display name
type AppNamer func(app string) string

// ExpandRemark renders template for b. An empty template yields "".
// Shop name and item are de-duplicated first so that "京东京东自营" renders as
// "京东自营" and an item never repeats text already in the shop name.
func ExpandRemark(b *bill.Bill, template string, appName AppNamer) string {
	if template == "" {
		return ""
	}

	shopName, shopItem := normalizePair(b.ShopName, b.ShopItem)

	app := b.App
	if appName != nil {
		if name := appName(b.App); name != "" {
			app = name
		}
	}

	r := strings.NewReplacer(
		"【商户名称】", shopName,
		"【商品名称】", shopItem,
		"【金额】", b.Amount.String(),
		"【分类】", b.CategoryName,
		"【账本】", b.BookName,
		"【来源】", app,
		"【原始资产】", b.AccountFrom,
		"【目标资产】", b.AccountTo,
		"【渠道】", b.Channel,
		"【规则名称】", b.RuleName,
		"【AI】", bill.AIProviderFromRule(b.RuleName),
		"【货币类型】", b.Currency,
		"【手续费】", b.Fee.String(),
		"【标签】", b.Tags,
		"【交易类型】", b.Type.Label(),
		"【时间】", formatTime(b),
	)
	return r.Replace(template)
}

func formatTime(b *bill.Bill) string {
	if b.Time.IsZero() {
		return ""
	}
	return b.Time.Format(RemarkTimeLayout)
}

func normalizePair(shopName, shopItem string) (string, string) {
	name := strings.TrimSpace(NormalizeName(shopName))
	item := strings.TrimSpace(NormalizeName(shopItem))

	combined := strings.TrimSpace(NormalizeName(name + joint + item))
	left, right, ok := strings.Cut(combined, joint)
	if !ok {
		return name, item
	}
	return strings.TrimSpace(left), strings.TrimSpace(right)
}

// NormalizeName removes repeated substrings of two or more runes, keeping the
// first occurrence. Longer repeats are removed before shorter ones and the
// pass repeats until nothing changes:
//
//	"京东自营京东自营旗舰店" -> "京东自营旗舰店"
//	"苹果苹果旗舰店旗舰店"   -> "苹果旗舰店"
func NormalizeName(name string) string {
	result := []rune(strings.TrimSpace(name))

	for {
		next, changed := dropLongestRepeat(result)
		if !changed {
			return string(next)
		}
		result = next
	}
}

// dropLongestRepeat finds the longest substring (leftmost on ties) occurring
// more than once without overlap and deletes every occurrence after the first.
func dropLongestRepeat(s []rune) ([]rune, bool) {
	for size := len(s) - 1; size >= 2; size-- {
		for i := 0; i+size <= len(s); i++ {
			sub := s[i : i+size]
			hits := occurrences(s, sub)
			if len(hits) < 2 {
				continue
			}
			out := make([]rune, 0, len(s))
			prev := 0
			for _, h := range hits[1:] {
				out = append(out, s[prev:h]...)
				prev = h + size
			}
			out = append(out, s[prev:]...)
			return out, true
		}
	}
	return s, false
}

// occurrences returns the start index of every non-overlapping match of sub
// scanning left to right.
func occurrences(s, sub []rune) []int {
	var hits []int
	for i := 0; i+len(sub) <= len(s); {
		if runesEqual(s[i:i+len(sub)], sub) {
			hits = append(hits, i)
			i += len(sub)
			continue
		}
		i++
	}
	return hits
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
