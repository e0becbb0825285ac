package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eshaffer321/bill-reconciler/internal/domain/bill"
)

func snapshotAssets(names ...string) []bill.AssetRecord {
	return NewSnapshot(records(names...), nil).Assets
}

func TestLongestCommonSubstring(t *testing.T) {
	assert.Equal(t, 0, LongestCommonSubstring("", "招商"))
	assert.Equal(t, 2, LongestCommonSubstring("招商", "招商信用"))
	assert.Equal(t, 3, LongestCommonSubstring("abcxyz", "zzabcz"))
	assert.Equal(t, 1, LongestCommonSubstring("ab", "ba"), "contiguous, not subsequence")
}

func TestExtractBank(t *testing.T) {
	assert.Equal(t, "招商", ExtractBank("招商银行信用卡"))
	assert.Equal(t, "中国建设", ExtractBank("中国建设银行(1234)"))
	assert.Equal(t, "", ExtractBank("支付宝余额"))
}

func TestFuzzyMatch_DigitAnchor(t *testing.T) {
	assets := snapshotAssets("支付宝余额", "招商银行(6789)")

	got, ok := FuzzyMatch("我的卡6789", assets)

	assert.True(t, ok)
	assert.Equal(t, "招商银行(6789)", got)
}

func TestFuzzyMatch_LongestDigitRunWins(t *testing.T) {
	assets := snapshotAssets("账户(12)", "招商银行(6789)")

	got, ok := FuzzyMatch("12月 尾号6789", assets)

	assert.True(t, ok)
	assert.Equal(t, "招商银行(6789)", got)
}

func TestFuzzyMatch_CreditCardBankGuard(t *testing.T) {
	assets := snapshotAssets("工商银行信用卡(1234)", "招商银行信用卡(1234)")

	got, ok := FuzzyMatch("招商银行信用卡尾号1234", assets)
	assert.True(t, ok)
	assert.Equal(t, "招商银行信用卡(1234)", got, "different bank with same suffix is skipped")

	got, ok = FuzzyMatch("信用卡1234", assets)
	assert.True(t, ok)
	assert.Equal(t, "工商银行信用卡(1234)", got, "no bank in input keeps first hit")
}

func TestFuzzyMatch_Similarity(t *testing.T) {
	t.Run("larger overlap wins", func(t *testing.T) {
		assets := snapshotAssets("微信零钱", "微信零钱通")

		got, ok := FuzzyMatch("零钱通余额", assets)

		assert.True(t, ok)
		assert.Equal(t, "微信零钱通", got)
	})

	t.Run("tie prefers tighter candidate", func(t *testing.T) {
		assets := snapshotAssets("余额宝理财专户", "余额宝")

		got, ok := FuzzyMatch("我的余额宝", assets)

		assert.True(t, ok)
		assert.Equal(t, "余额宝", got)
	})

	t.Run("country prefix with similarity two is ignored", func(t *testing.T) {
		assets := snapshotAssets("中国移动话费")

		_, ok := FuzzyMatch("中国石油", assets)

		assert.False(t, ok)
	})

	t.Run("country prefix with longer overlap still matches", func(t *testing.T) {
		assets := snapshotAssets("中国银行(0001)", "中国石油加油卡")

		got, ok := FuzzyMatch("中国石油", assets)

		assert.True(t, ok)
		assert.Equal(t, "中国石油加油卡", got)
	})

	t.Run("no overlap", func(t *testing.T) {
		_, ok := FuzzyMatch("PayPal", snapshotAssets("微信零钱"))
		assert.False(t, ok)
	})
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "招商", cleanText("招商银行储蓄卡(6789)", ""))
	assert.Equal(t, "招商", cleanText("招商银行（工资）", ""))
	assert.Equal(t, "宝", cleanText("支付宝", ""))
	assert.Equal(t, "尾号", cleanText("尾号6789", "6789"))
}
