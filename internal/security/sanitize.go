// Package security は入力のサニタイズとパスワードポリシーを提供します。
// 状態を持たない純粋な関数のみで構成されます。
package security

import (
	"html"
	"strings"
)

// SanitizeInput はフォーム入力の文字列を無害化します。
//
// 処理内容:
//  1. 前後の空白を除去
//  2. エスケープ用のバックスラッシュを除去
//  3. HTML特殊文字（& < > " '）を実体参照へ変換
//
// パスワードには適用しないこと。ハッシュ対象の文字を変化させてしまうため、
// パスワードはあらゆる文字をそのまま有効として扱います。
func SanitizeInput(data string) string {
	data = strings.TrimSpace(data)
	data = stripSlashes(data)
	return html.EscapeString(data)
}

// stripSlashes はエスケープ目的のバックスラッシュを取り除きます。
// 連続する「\\」は一つの「\」に畳み込まれます。
func stripSlashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
