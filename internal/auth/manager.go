// Package auth はログイン・登録・ログアウトのオーケストレーションを提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/auth-gateway/internal/security"
	"github.com/yourusername/auth-gateway/internal/session"
	"github.com/yourusername/auth-gateway/internal/users"
)

// 利用者に返すメッセージ。失敗理由を特定されないよう汎用的な文面に揃えています。
const (
	msgInvalidRequest  = "不正なリクエストです。ページを再読み込みしてやり直してください。"
	msgBadCredentials  = "ユーザーIDまたはパスワードが正しくありません。"
	msgPendingApproval = "アカウントは管理者の承認待ちです。"
	msgInfrastructure  = "一時的なエラーが発生しました。しばらくしてから再度お試しください。"
	msgAllRequired     = "すべての項目を入力してください。"
	msgDuplicate       = "登録できませんでした。このユーザーIDは既に使用されている可能性があります。"
	msgRegistered      = "登録が完了しました。管理者の承認をお待ちください。"
)

// Manager は認証処理をまとめた構造体です。
type Manager struct {
	users users.Store
}

// NewManager は認証マネージャーを作成します。
func NewManager(store users.Store) *Manager {
	return &Manager{users: store}
}

// LoginInput はログインフォームの入力値です。
type LoginInput struct {
	IDUser    string
	Password  string
	CSRFToken string
}

// Login はログイン試行を処理します。
//
// 処理順は固定です:
//  1. CSRFトークン検証
//  2. 試行回数制限の確認（ブロック中は資格情報の照合まで到達させない）
//  3. ユーザーIDのサニタイズ（パスワードは一切加工しない）
//  4. ユーザー検索とパスワード照合（不存在と不一致は同じ失敗として扱う）
//  5. 承認フラグの確認（照合成功後のみ。失敗カウンタは進めない）
//  6. 成功時はカウンタをリセットして認証済みユーザーを設定
func (m *Manager) Login(ctx context.Context, state *session.State, in LoginInput) LoginResult {
	if !state.VerifyCSRFToken(in.CSRFToken) {
		return LoginResult{Outcome: OutcomeInvalidRequest, Message: msgInvalidRequest}
	}

	now := time.Now()
	if status := state.CheckLoginAttempts(now); status.Blocked {
		return LoginResult{
			Outcome: OutcomeLockedOut,
			Message: fmt.Sprintf("ログイン試行回数が上限を超えました。%d分後に再度お試しください。", status.RemainingMinutes),
		}
	}

	idUser := security.SanitizeInput(in.IDUser)

	user, err := m.users.FindByID(ctx, idUser)
	if err != nil {
		// 接続情報やスキーマの詳細を利用者に晒さない
		log.Printf("auth: user lookup failed: %v", err)
		return LoginResult{Outcome: OutcomeInfrastructureError, Message: msgInfrastructure}
	}

	if user == nil || !security.VerifyPassword(user.PasswordHash, in.Password) {
		// ユーザーが存在するかどうかは応答から判別できないようにする
		state.RecordLoginFailure(now)
		return LoginResult{Outcome: OutcomeBadCredentials, Message: msgBadCredentials}
	}

	if !user.Admitido {
		// パスワードは正しいので失敗カウンタは進めない
		return LoginResult{Outcome: OutcomePendingApproval, Message: msgPendingApproval}
	}

	state.RecordLoginSuccess()
	authenticated := session.AuthenticatedUser{
		IDUser:    user.IDUser,
		Nombre:    user.Nombre,
		Apellidos: user.Apellidos,
	}
	state.SetUser(authenticated)

	return LoginResult{Outcome: OutcomeSuccess, User: &authenticated}
}

// RegisterInput は登録フォームの入力値です。
type RegisterInput struct {
	IDUser    string
	Password  string
	Nombre    string
	Apellidos string
	CSRFToken string
}

// Register は新規ユーザー登録を処理します。
// 登録されたユーザーは admitido=0 となり、管理者が承認するまでログインできません。
func (m *Manager) Register(ctx context.Context, state *session.State, in RegisterInput) RegisterResult {
	if !state.VerifyCSRFToken(in.CSRFToken) {
		return RegisterResult{Outcome: OutcomeInvalidRequest, Message: msgInvalidRequest}
	}

	// パスワード以外のテキスト項目をサニタイズする
	idUser := security.SanitizeInput(in.IDUser)
	nombre := security.SanitizeInput(in.Nombre)
	apellidos := security.SanitizeInput(in.Apellidos)

	if idUser == "" || in.Password == "" || nombre == "" || apellidos == "" {
		return RegisterResult{Outcome: OutcomeValidationFailed, Message: msgAllRequired}
	}

	// ポリシー違反は最初の一件で止めず、すべて集めて返す
	var violations []string
	if result := security.ValidateUserID(idUser); !result.Valid {
		violations = append(violations, result.Errors...)
	}
	if result := security.ValidatePassword(in.Password); !result.Valid {
		violations = append(violations, result.Errors...)
	}
	if len(violations) > 0 {
		return RegisterResult{
			Outcome:     OutcomeValidationFailed,
			Message:     strings.Join(violations, " "),
			FieldErrors: violations,
		}
	}

	// 事前チェックは早期にわかりやすいエラーを返すための最適化にすぎない。
	// 並行登録との競合はストアの一意制約が最終的に防ぐ。
	exists, err := m.users.Exists(ctx, idUser)
	if err != nil {
		log.Printf("auth: user existence check failed: %v", err)
		return RegisterResult{Outcome: OutcomeInfrastructureError, Message: msgInfrastructure}
	}
	if exists {
		return RegisterResult{Outcome: OutcomeDuplicate, Message: msgDuplicate}
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		log.Printf("auth: password hashing failed: %v", err)
		return RegisterResult{Outcome: OutcomeInfrastructureError, Message: msgInfrastructure}
	}

	err = m.users.Create(ctx, &users.User{
		IDUser:       idUser,
		PasswordHash: hash,
		Nombre:       nombre,
		Apellidos:    apellidos,
	})
	if err != nil {
		if errors.Is(err, users.ErrDuplicate) {
			// どの項目が衝突したかは明かさない
			return RegisterResult{Outcome: OutcomeDuplicate, Message: msgDuplicate}
		}
		log.Printf("auth: user creation failed: %v", err)
		return RegisterResult{Outcome: OutcomeInfrastructureError, Message: msgInfrastructure}
	}

	return RegisterResult{Outcome: OutcomeSuccess, Message: msgRegistered}
}
