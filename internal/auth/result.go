package auth

import "github.com/yourusername/auth-gateway/internal/session"

// Outcome は認証操作の結果種別です。
// テストでは種別を区別できますが、利用者に見せるのは Message だけであり、
// 「ユーザーが存在しない」と「パスワードが違う」は外部から区別できません。
type Outcome string

const (
	// OutcomeSuccess は操作の成功を表します。
	OutcomeSuccess Outcome = "success"

	// OutcomeInvalidRequest はCSRF検証の失敗を表します。詳細は返しません。
	OutcomeInvalidRequest Outcome = "invalid_request"

	// OutcomeLockedOut は試行回数制限によるブロック中を表します。
	OutcomeLockedOut Outcome = "locked_out"

	// OutcomeBadCredentials は資格情報の不一致を表します。
	// ユーザー不存在とパスワード不一致の両方がここに含まれます。
	OutcomeBadCredentials Outcome = "bad_credentials"

	// OutcomePendingApproval はパスワードは正しいが未承認の状態を表します。
	OutcomePendingApproval Outcome = "pending_approval"

	// OutcomeValidationFailed は入力値のポリシー違反を表します。
	OutcomeValidationFailed Outcome = "validation_failed"

	// OutcomeDuplicate は登録時の識別子重複を表します。
	OutcomeDuplicate Outcome = "duplicate"

	// OutcomeInfrastructureError はストア障害などの内部エラーを表します。
	// 詳細はサーバー側のログにのみ残し、利用者には汎用メッセージを返します。
	OutcomeInfrastructureError Outcome = "infrastructure_error"
)

// LoginResult はログイン操作の結果です。
type LoginResult struct {
	Outcome Outcome
	Message string

	// User は成功時のみ設定されます。未承認アカウントでは nil のままです。
	User *session.AuthenticatedUser
}

// RegisterResult は登録操作の結果です。
type RegisterResult struct {
	Outcome Outcome
	Message string

	// FieldErrors には検出されたポリシー違反がすべて入ります。
	FieldErrors []string
}
