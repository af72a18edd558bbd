package registration

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// tokenPrefix はチェックインコードの固定プレフィックス。
const tokenPrefix = "EVT"

// tokenSuffixLength はランダムサフィックスの文字数。
const tokenSuffixLength = 9

// tokenCharset はサフィックスに使用する英大文字と数字。
const tokenCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateToken は会場チェックイン用の照合コードを生成する。
// 形式: EVT-<ミリ秒タイムスタンプ>-<英数9文字>
// タイムスタンプ成分とランダム成分の組み合わせで衝突確率は十分低いが、
// 一意性の最終保証はDBの一意制約と呼び出し側の再生成リトライが担う。
func GenerateToken(now time.Time) (string, error) {
	suffix := make([]byte, tokenSuffixLength)
	max := big.NewInt(int64(len(tokenCharset)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("チェックインコードの生成に失敗しました: %w", err)
		}
		suffix[i] = tokenCharset[n.Int64()]
	}
	return fmt.Sprintf("%s-%d-%s", tokenPrefix, now.UnixMilli(), suffix), nil
}
