package session

import "time"

const (
	// MaxLoginAttempts はブロックされるまでに許容する失敗回数です。
	MaxLoginAttempts = 5

	// LockoutTime は最初の失敗からブロックを継続する時間です。
	LockoutTime = 15 * time.Minute
)

// AttemptStatus はログイン試行制限の判定結果です。
type AttemptStatus struct {
	// Blocked が true の間はログイン試行自体を受け付けません。
	Blocked bool

	// RemainingMinutes はブロック解除までの残り時間（分、切り上げ）です。
	RemainingMinutes int
}

// CheckLoginAttempts はこのセッションがブロック中かを判定します。
// ブロック期間を過ぎていた場合はカウンタを遅延リセットして解除します。
// ログイン試行のたびに、資格情報の照合より前に呼び出すこと。
func (s *State) CheckLoginAttempts(now time.Time) AttemptStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failedAttempts >= MaxLoginAttempts {
		elapsed := now.Sub(s.firstAttemptAt)
		if elapsed < LockoutTime {
			remaining := LockoutTime - elapsed
			// 分単位に切り上げ（残り1秒でも「1分」と表示する）
			minutes := int((remaining + time.Minute - 1) / time.Minute)
			return AttemptStatus{Blocked: true, RemainingMinutes: minutes}
		}

		// ブロック期間が過ぎているのでリセットして通常状態に戻す
		s.failedAttempts = 0
		s.firstAttemptAt = time.Time{}
	}

	return AttemptStatus{}
}

// RecordLoginFailure はログイン失敗を記録します。
// 最初の失敗時刻がブロック時間計算の起点になります。
func (s *State) RecordLoginFailure(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.firstAttemptAt.IsZero() {
		s.firstAttemptAt = now
	}
	s.failedAttempts++
}

// RecordLoginSuccess はログイン成功時にカウンタを無条件でリセットします。
func (s *State) RecordLoginSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failedAttempts = 0
	s.firstAttemptAt = time.Time{}
}

// FailedAttempts は現在の失敗回数を返します。
func (s *State) FailedAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failedAttempts
}
