// Package session はサーバー側セッションの状態と有効期間を管理します。
//
// セッションには次のセキュリティポリシーを適用します。
//   - 絶対有効期限: 作成から2時間で、操作の有無にかかわらず破棄
//   - ID の定期ローテーション: 20分ごとに識別子を再発行（状態は維持）
//   - CSRFトークン: セッションごとに1つ、存在しない場合のみ生成
//   - ログイン試行制限: セッション単位の失敗カウンタと時限ブロック
package session

import (
	"sync"
	"time"
)

const (
	// AbsoluteLifetime はセッションの絶対有効期限です。
	// 経過後は操作の有無にかかわらずセッションを破棄します。
	AbsoluteLifetime = 2 * time.Hour

	// RotationInterval はセッションIDを再発行する間隔です。
	// セッション固定化攻撃（session fixation）への対策。
	RotationInterval = 20 * time.Minute
)

// フラッシュメッセージのキー。リダイレクト先のビューが一度だけ読み取ります。
const (
	FlashLoginError      = "error"
	FlashRegisterError   = "registro_error"
	FlashRegisterSuccess = "registro_exito"
)

// AuthenticatedUser はログイン済みユーザーの表示用情報です。
type AuthenticatedUser struct {
	IDUser    string `json:"idUser"`
	Nombre    string `json:"nombre"`
	Apellidos string `json:"apellidos"`
}

// State は1セッション分のサーバー側状態です。
// 同一セッションを持つリクエストが並行して到達することがあるため、
// すべてのフィールドへのアクセスはメソッド経由（内部mutex保護）で行います。
type State struct {
	mu sync.Mutex

	createdAt     time.Time // 絶対有効期限の起点（セッション生成時に一度だけ設定）
	lastRotatedAt time.Time // 最後にIDをローテーションした時刻

	csrfToken string

	failedAttempts int
	firstAttemptAt time.Time

	user  *AuthenticatedUser
	flash map[string]string
}

func newState(now time.Time) *State {
	return &State{
		createdAt:     now,
		lastRotatedAt: now,
		flash:         make(map[string]string),
	}
}

// Expired はセッションが絶対有効期限を超えているかを返します。
func (s *State) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.createdAt) >= AbsoluteLifetime
}

// RotationDue はIDローテーションの期限が来ているかを返します。
func (s *State) RotationDue(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastRotatedAt) >= RotationInterval
}

// touchRotated はローテーション完了時に呼ばれ、次の期限の起点を更新します。
func (s *State) touchRotated(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRotatedAt = now
}

// SetUser はログイン成功時に認証済みユーザー情報を保存します。
func (s *State) SetUser(user AuthenticatedUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
}

// User は認証済みユーザー情報のコピーを返します。未ログインなら nil です。
func (s *State) User() *AuthenticatedUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LoggedIn はログイン済みかどうかを返します。
func (s *State) LoggedIn() bool {
	return s.User() != nil
}

// SetFlash はリダイレクト先で一度だけ表示するメッセージを保存します。
func (s *State) SetFlash(key, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash[key] = message
}

// TakeFlash はフラッシュメッセージを取り出して削除します。
func (s *State) TakeFlash(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	message := s.flash[key]
	delete(s.flash, key)
	return message
}
