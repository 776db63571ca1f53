// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はユーザーが入力した夢の本文をサニタイズし、
// XSS攻撃などのセキュリティリスクから閲覧クライアントを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 最小限の整形タグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService は夢コンテンツのサニタイズ機能のインターフェースを定義する。
// 夢の作成・更新時、保存前に使用される。
type ContentSanitizerService interface {
	// Sanitize は夢の本文をサニタイズして安全なテキストを返す。
	// 許可タグ（p, br, ul, ol, li, blockquote, strong, em）のみを通過させ、
	// script, iframe, a, img, styleタグおよびon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 夢の本文は個人の日記テキストであり、リンクや画像の埋め込みは想定しない。
// ポリシーの内容:
//   - 許可タグ: p, br, ul, ol, li, blockquote, strong, em
//   - 禁止タグ: a, img, script, iframe, style および全てのon*イベント属性
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	// 整形用のシンプルなタグのみ許可する。
	// 許可リストに含めないタグ・属性はbluemondayが自動的に除去する。
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize は夢の本文をサニタイズして安全なテキストを返す。
func (s *contentSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
