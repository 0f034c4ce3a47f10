package security

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// パスワード・ユーザーIDの長さ制限（文字数ではなくバイト数で判定）
	minCredentialLength = 8
	maxCredentialLength = 15

	// forbiddenChars はパスワードに含めてはいけない文字です。
	// エスケープ処理の曖昧さを避けるため、意図的に厳しめの拒否リストにしています。
	forbiddenChars = `'"\/<>=()`

	// allowedSpecialChars は「記号を1文字以上」の判定に使う許可リストです。
	allowedSpecialChars = `!@#$%^&*_+=-[]{};:,.?`
)

// ValidationResult はバリデーションの結果を表します。
// Errors には検出された違反がすべて入ります（最初の一件だけではない）。
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidatePassword はパスワードがポリシーを満たすか検証します。
//
// ルール:
//   - 8〜15文字
//   - 禁止文字 ' " \ / < > = ( ) を含まない
//   - 大文字・小文字・数字・許可記号をそれぞれ1文字以上含む
//
// 各ルールは独立して検査され、違反はすべて報告されます。
func ValidatePassword(password string) ValidationResult {
	var errs []string

	if len(password) < minCredentialLength || len(password) > maxCredentialLength {
		errs = append(errs, "パスワードは8文字以上15文字以内で入力してください")
	}

	if strings.ContainsAny(password, forbiddenChars) {
		errs = append(errs, `パスワードに ' " \ / < > = ( ) は使用できません`)
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}

	if !hasUpper {
		errs = append(errs, "パスワードには大文字を1文字以上含めてください")
	}
	if !hasLower {
		errs = append(errs, "パスワードには小文字を1文字以上含めてください")
	}
	if !hasDigit {
		errs = append(errs, "パスワードには数字を1文字以上含めてください")
	}
	if !strings.ContainsAny(password, allowedSpecialChars) {
		errs = append(errs, "パスワードには記号（ !@#$%^&*_+=-[]{};:,.? ）を1文字以上含めてください")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// ValidateUserID はユーザーIDの長さ（8〜15文字）を検証します。
func ValidateUserID(idUser string) ValidationResult {
	var errs []string

	if len(idUser) < minCredentialLength || len(idUser) > maxCredentialLength {
		errs = append(errs, "ユーザーIDは8文字以上15文字以内で入力してください")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// HashPassword はパスワードを bcrypt でハッシュ化します。
// コストはライブラリのデフォルトを使用します（独自の高速化はしない）。
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードを保存済みハッシュと照合します。
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
