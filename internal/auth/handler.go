package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-gateway/internal/session"
)

// msgSessionExpired は絶対有効期限切れでログインへ戻されたときの表示文です。
const msgSessionExpired = "セッションの有効期限が切れました。再度ログインしてください。"

// 各アクションのリダイレクト先。
const (
	redirectLogin        = "/?action=login"
	redirectDashboard    = "/?action=dashboard"
	redirectShowRegister = "/?action=showRegister"
)

// Handler は action ごとの HTTP ハンドラーをまとめた構造体です。
// 表示系（login, dashboard, showRegister）はビュー層が描画に使う
// フラグとメッセージを JSON で返し、状態変更系（authenticate, register,
// logout）は結果をフラッシュメッセージに載せてリダイレクトします。
type Handler struct {
	manager *Manager
	store   session.Store
	secure  bool
}

// NewHandler は Handler を作成します。
func NewHandler(manager *Manager, store session.Store, secure bool) *Handler {
	return &Handler{manager: manager, store: store, secure: secure}
}

// ShowLogin はログインフォーム用のビューデータを返します。
func (h *Handler) ShowLogin(c *gin.Context) {
	state := session.StateFrom(c)

	payload := gin.H{
		"view":      "login",
		"csrfToken": state.CSRFToken(),
	}
	if c.Query("expired") == "1" {
		payload["error"] = msgSessionExpired
	} else if msg := state.TakeFlash(session.FlashLoginError); msg != "" {
		payload["error"] = msg
	}
	if msg := state.TakeFlash(session.FlashRegisterSuccess); msg != "" {
		payload["notice"] = msg
	}

	c.JSON(http.StatusOK, payload)
}

// Authenticate はログインフォームの送信を処理します。POST 専用です。
func (h *Handler) Authenticate(c *gin.Context) {
	state := session.StateFrom(c)

	result := h.manager.Login(c.Request.Context(), state, LoginInput{
		IDUser:    c.PostForm("idUser"),
		Password:  c.PostForm("password"),
		CSRFToken: c.PostForm("csrf_token"),
	})

	if result.Outcome == OutcomeSuccess {
		// ログイン直後にセッションIDを再発行する（セッション固定化対策）
		session.RotateID(c, h.store, h.secure)
		c.Redirect(http.StatusFound, redirectDashboard)
		return
	}

	state.SetFlash(session.FlashLoginError, result.Message)
	c.Redirect(http.StatusFound, redirectLogin)
}

// Dashboard はログイン済みユーザー向けのビューデータを返します。
// RequireLogin で保護されている前提です。
func (h *Handler) Dashboard(c *gin.Context) {
	state := session.StateFrom(c)

	c.JSON(http.StatusOK, gin.H{
		"view":      "dashboard",
		"user":      state.User(),
		"csrfToken": state.CSRFToken(),
	})
}

// Logout はセッションを破棄してログインへ戻します。
// 失敗経路はなく、常に 状態破棄 → クッキー破棄 → リダイレクト の順で行います。
func (h *Handler) Logout(c *gin.Context) {
	if state := session.StateFrom(c); state != nil {
		state.ClearCSRFToken()
	}
	h.store.Destroy(session.IDFrom(c))
	session.ExpireCookie(c, h.secure)
	c.Redirect(http.StatusFound, redirectLogin)
}

// ShowRegister は登録フォーム用のビューデータを返します。
func (h *Handler) ShowRegister(c *gin.Context) {
	state := session.StateFrom(c)

	payload := gin.H{
		"view":      "register",
		"csrfToken": state.CSRFToken(),
	}
	if msg := state.TakeFlash(session.FlashRegisterError); msg != "" {
		payload["error"] = msg
	}

	c.JSON(http.StatusOK, payload)
}

// Register は登録フォームの送信を処理します。POST 専用です。
// 成功しても自動ログインはせず、承認待ちの案内と共にログインへ戻します。
func (h *Handler) Register(c *gin.Context) {
	state := session.StateFrom(c)

	result := h.manager.Register(c.Request.Context(), state, RegisterInput{
		IDUser:    c.PostForm("idUser"),
		Password:  c.PostForm("password"),
		Nombre:    c.PostForm("nombre"),
		Apellidos: c.PostForm("apellidos"),
		CSRFToken: c.PostForm("csrf_token"),
	})

	if result.Outcome == OutcomeSuccess {
		state.SetFlash(session.FlashRegisterSuccess, result.Message)
		c.Redirect(http.StatusFound, redirectLogin)
		return
	}

	state.SetFlash(session.FlashRegisterError, result.Message)
	c.Redirect(http.StatusFound, redirectShowRegister)
}
