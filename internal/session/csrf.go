package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// csrfTokenBytes はCSRFトークンの乱数長です。hexエンコード後は128文字になります。
const csrfTokenBytes = 64

// EnsureCSRFToken はセッションにCSRFトークンが無ければ生成して返します。
// 既にトークンがある場合は同じ値を返します（冪等）。
func (s *State) EnsureCSRFToken() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.csrfToken != "" {
		return s.csrfToken, nil
	}

	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	s.csrfToken = hex.EncodeToString(buf)
	return s.csrfToken, nil
}

// CSRFToken は現在のトークンを返します。未発行なら空文字です。
func (s *State) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// VerifyCSRFToken は送信されたトークンがセッションのトークンと一致するか検証します。
// タイミング攻撃を防ぐため定数時間で比較します。
// トークンが未発行の場合も、送信値が空の場合も false を返すだけで、
// セッション側にトークンが存在したかどうかは漏らしません。
func (s *State) VerifyCSRFToken(submitted string) bool {
	s.mu.Lock()
	token := s.csrfToken
	s.mu.Unlock()

	if token == "" || submitted == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(submitted)) == 1
}

// ClearCSRFToken はトークンを破棄します。ログアウト時に呼ばれます。
func (s *State) ClearCSRFToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfToken = ""
}
