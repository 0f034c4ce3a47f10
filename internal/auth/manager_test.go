package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yourusername/auth-gateway/internal/security"
	"github.com/yourusername/auth-gateway/internal/session"
	"github.com/yourusername/auth-gateway/internal/users"
)

// fakeUserStore はテスト用のインメモリ Store 実装です。
type fakeUserStore struct {
	mu        sync.Mutex
	records   map[string]*users.User
	findErr   error
	existsErr error
	createErr error
	findCalls int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{records: make(map[string]*users.User)}
}

func (f *fakeUserStore) FindByID(_ context.Context, idUser string) (*users.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	user, ok := f.records[idUser]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (f *fakeUserStore) Exists(_ context.Context, idUser string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.records[idUser]
	return ok, nil
}

func (f *fakeUserStore) Create(_ context.Context, user *users.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.records[user.IDUser]; ok {
		return users.ErrDuplicate
	}
	copied := *user
	f.records[user.IDUser] = &copied
	return nil
}

func (f *fakeUserStore) add(t *testing.T, idUser, password string, admitido bool) {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[idUser] = &users.User{
		IDUser:       idUser,
		PasswordHash: hash,
		Nombre:       "Nombre",
		Apellidos:    "Apellidos",
		Admitido:     admitido,
	}
}

// newSessionState はCSRFトークン発行済みのセッション状態を用意します。
func newSessionState(t *testing.T) (*session.State, string) {
	t.Helper()
	_, state := session.NewMemoryStore().Create(time.Now())
	token, err := state.EnsureCSRFToken()
	if err != nil {
		t.Fatalf("failed to issue csrf token: %v", err)
	}
	return state, token
}

func TestLoginRejectsInvalidCSRFToken(t *testing.T) {
	store := newFakeUserStore()
	manager := NewManager(store)
	state, _ := newSessionState(t)

	result := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		CSRFToken: "wrong-token",
	})

	if result.Outcome != OutcomeInvalidRequest {
		t.Fatalf("expected invalid_request, got %s", result.Outcome)
	}
	// CSRF失敗は試行としてカウントしない
	if state.FailedAttempts() != 0 {
		t.Fatal("expected no failure recorded for csrf rejection")
	}
	if store.findCalls != 0 {
		t.Fatal("expected no store access before csrf validation")
	}
}

func TestLoginUnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	store := newFakeUserStore()
	store.add(t, "usuario01", "Abc12345!", true)
	manager := NewManager(store)

	state, token := newSessionState(t)
	unknown := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "nadieaqui",
		Password:  "Abc12345!",
		CSRFToken: token,
	})

	state2, token2 := newSessionState(t)
	wrongPassword := manager.Login(context.Background(), state2, LoginInput{
		IDUser:    "usuario01",
		Password:  "Xyz98765!",
		CSRFToken: token2,
	})

	if unknown.Outcome != OutcomeBadCredentials || wrongPassword.Outcome != OutcomeBadCredentials {
		t.Fatalf("expected bad_credentials for both, got %s / %s", unknown.Outcome, wrongPassword.Outcome)
	}
	// ユーザーの存在有無がメッセージから判別できてはいけない
	if unknown.Message != wrongPassword.Message {
		t.Fatalf("expected identical messages, got %q vs %q", unknown.Message, wrongPassword.Message)
	}
	if state.FailedAttempts() != 1 || state2.FailedAttempts() != 1 {
		t.Fatal("expected exactly one failure recorded per attempt")
	}
}

func TestLoginBlockedSessionNeverReachesCredentialCheck(t *testing.T) {
	store := newFakeUserStore()
	store.add(t, "usuario01", "Abc12345!", true)
	manager := NewManager(store)

	state, token := newSessionState(t)
	now := time.Now()
	for i := 0; i < session.MaxLoginAttempts; i++ {
		state.RecordLoginFailure(now)
	}

	result := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeLockedOut {
		t.Fatalf("expected locked_out, got %s", result.Outcome)
	}
	if result.Message == "" {
		t.Fatal("expected a remaining-time message")
	}
	// ブロック中は資格情報の照合まで到達しない
	if store.findCalls != 0 {
		t.Fatal("expected no user lookup while locked out")
	}
	if result.User != nil {
		t.Fatal("expected no authenticated user while locked out")
	}
}

func TestLoginPendingApproval(t *testing.T) {
	store := newFakeUserStore()
	store.add(t, "usuario01", "Abc12345!", false)
	manager := NewManager(store)

	state, token := newSessionState(t)
	state.RecordLoginFailure(time.Now()) // 事前に1回失敗している状況

	result := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		CSRFToken: token,
	})

	if result.Outcome != OutcomePendingApproval {
		t.Fatalf("expected pending_approval, got %s", result.Outcome)
	}
	if result.User != nil {
		t.Fatal("expected no authenticated user for unapproved account")
	}
	if state.User() != nil {
		t.Fatal("expected session to remain unauthenticated")
	}
	// パスワードは正しいので失敗カウンタは進まない（リセットもされない）
	if state.FailedAttempts() != 1 {
		t.Fatalf("expected failure counter unchanged at 1, got %d", state.FailedAttempts())
	}
}

func TestLoginSuccess(t *testing.T) {
	store := newFakeUserStore()
	store.add(t, "usuario01", "Abc12345!", true)
	manager := NewManager(store)

	state, token := newSessionState(t)
	state.RecordLoginFailure(time.Now())
	state.RecordLoginFailure(time.Now())

	result := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "  usuario01  ", // サニタイズでトリムされる
		Password:  "Abc12345!",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Message)
	}
	if result.User == nil || result.User.IDUser != "usuario01" {
		t.Fatalf("unexpected authenticated user: %+v", result.User)
	}
	if state.User() == nil {
		t.Fatal("expected session to hold the authenticated user")
	}
	if state.FailedAttempts() != 0 {
		t.Fatal("expected failure counter reset on success")
	}
}

func TestLoginStoreFailureIsGeneric(t *testing.T) {
	store := newFakeUserStore()
	store.findErr = errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	manager := NewManager(store)

	state, token := newSessionState(t)
	result := manager.Login(context.Background(), state, LoginInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeInfrastructureError {
		t.Fatalf("expected infrastructure_error, got %s", result.Outcome)
	}
	// 接続先などの内部情報をメッセージに含めない
	if result.Message != msgInfrastructure {
		t.Fatalf("expected generic message, got %q", result.Message)
	}
	if state.FailedAttempts() != 0 {
		t.Fatal("expected no failure recorded for infrastructure errors")
	}
}

func TestRegisterRejectsInvalidCSRFToken(t *testing.T) {
	manager := NewManager(newFakeUserStore())
	state, _ := newSessionState(t)

	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		Nombre:    "Nombre",
		Apellidos: "Apellidos",
		CSRFToken: "",
	})

	if result.Outcome != OutcomeInvalidRequest {
		t.Fatalf("expected invalid_request, got %s", result.Outcome)
	}
}

func TestRegisterRequiresAllFields(t *testing.T) {
	manager := NewManager(newFakeUserStore())
	state, token := newSessionState(t)

	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		Nombre:    "",
		Apellidos: "Apellidos",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeValidationFailed {
		t.Fatalf("expected validation_failed, got %s", result.Outcome)
	}
}

func TestRegisterAggregatesAllViolations(t *testing.T) {
	manager := NewManager(newFakeUserStore())
	state, token := newSessionState(t)

	// IDが短すぎ、パスワードは大文字・記号なし
	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    "corto",
		Password:  "abc12345",
		Nombre:    "Nombre",
		Apellidos: "Apellidos",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeValidationFailed {
		t.Fatalf("expected validation_failed, got %s", result.Outcome)
	}
	if len(result.FieldErrors) != 3 {
		t.Fatalf("expected 3 aggregated violations, got %d: %v", len(result.FieldErrors), result.FieldErrors)
	}
}

func TestRegisterSuccess(t *testing.T) {
	store := newFakeUserStore()
	manager := NewManager(store)
	state, token := newSessionState(t)

	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    " usuario01 ",
		Password:  "Abc12345!",
		Nombre:    "  Nombre  ",
		Apellidos: "Apellidos",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeSuccess {
		t.Fatalf("expected success, got %s (%s)", result.Outcome, result.Message)
	}

	created := store.records["usuario01"]
	if created == nil {
		t.Fatal("expected user to be created under the sanitized id")
	}
	if created.Admitido {
		t.Fatal("expected new account to start unapproved")
	}
	if created.Nombre != "Nombre" {
		t.Fatalf("expected sanitized nombre, got %q", created.Nombre)
	}
	// 平文は保存されず、ハッシュは元のパスワードで照合できる
	if created.PasswordHash == "Abc12345!" {
		t.Fatal("expected password to be hashed")
	}
	if !security.VerifyPassword(created.PasswordHash, "Abc12345!") {
		t.Fatal("expected stored hash to verify the original password")
	}
	// 自動ログインはしない
	if state.User() != nil {
		t.Fatal("expected no auto-login after registration")
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store := newFakeUserStore()
	store.add(t, "usuario01", "Abc12345!", false)
	manager := NewManager(store)
	state, token := newSessionState(t)

	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    "usuario01",
		Password:  "Xyz98765!",
		Nombre:    "Otro",
		Apellidos: "Usuario",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", result.Outcome)
	}
	if len(store.records) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(store.records))
	}
}

func TestRegisterDuplicateFromStoreConstraint(t *testing.T) {
	// 事前チェックをすり抜けた並行登録は一意制約（ErrDuplicate）で検出される
	store := newFakeUserStore()
	store.createErr = users.ErrDuplicate
	manager := NewManager(store)
	state, token := newSessionState(t)

	result := manager.Register(context.Background(), state, RegisterInput{
		IDUser:    "usuario01",
		Password:  "Abc12345!",
		Nombre:    "Nombre",
		Apellidos: "Apellidos",
		CSRFToken: token,
	})

	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate, got %s", result.Outcome)
	}
	if result.Message != msgDuplicate {
		t.Fatalf("expected generic duplicate message, got %q", result.Message)
	}
}
