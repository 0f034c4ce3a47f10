package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// CookieName はセッションIDを運ぶクッキーの名前です。
	CookieName = "ag_session"

	// CookiePath はクッキーの有効パスです。破棄時も必ず同じ値を使います。
	CookiePath = "/"

	contextStateKey = "session.state"
	contextIDKey    = "session.id"
)

// CookieMaxAgeSeconds はクッキーの MaxAge に使用する秒数を返します。
// クッキーがサーバー側の絶対有効期限より先に切れると、期限より早く
// 暗黙のログアウトが起きてしまうため、絶対有効期限と同じ値に揃えています。
func CookieMaxAgeSeconds() int {
	return int(AbsoluteLifetime.Seconds())
}

// expiredRedirectTarget はセッション失効時のリダイレクト先です。
const expiredRedirectTarget = "/?action=login&expired=1"

// Lifecycle はセッションの生成・失効・ローテーションを行うミドルウェアを返します。
// 他のあらゆる処理より先に適用すること。
//
// リクエストごとの処理順:
//  1. クッキーが無い／未知のIDなら新しいセッションを作成
//  2. 絶対有効期限を超えていたら状態を破棄してログインへリダイレクト
//     （このリクエストの以降の処理は一切行わない）
//  3. ローテーション期限が来ていたら状態を維持したまま新IDを発行
//  4. CSRFトークンが未発行なら生成
func Lifecycle(store Store, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()

		var state *State
		id := ""
		if cookie, err := c.Cookie(CookieName); err == nil && cookie != "" {
			state, id = store.Get(cookie)
		}

		if state == nil {
			id, state = store.Create(now)
			writeCookie(c, id, CookieMaxAgeSeconds(), secure)
		} else if state.Expired(now) {
			store.Destroy(id)
			writeCookie(c, "", -1, secure)
			c.Redirect(http.StatusFound, expiredRedirectTarget)
			c.Abort()
			return
		} else if state.RotationDue(now) {
			if newID, ok := store.Rotate(id, now); ok {
				id = newID
				writeCookie(c, id, CookieMaxAgeSeconds(), secure)
			}
		}

		if _, err := state.EnsureCSRFToken(); err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":    "TOKEN_GENERATION_FAILED",
				"message": "セキュリティトークンの生成に失敗しました",
			})
			return
		}

		c.Set(contextStateKey, state)
		c.Set(contextIDKey, id)
		c.Next()
	}
}

// StateFrom はリクエストに紐づくセッション状態を取り出します。
// Lifecycle ミドルウェアを通過していない場合は nil を返します。
func StateFrom(c *gin.Context) *State {
	value, ok := c.Get(contextStateKey)
	if !ok {
		return nil
	}
	state, _ := value.(*State)
	return state
}

// IDFrom は現在有効なセッションIDを取り出します。
func IDFrom(c *gin.Context) string {
	value, ok := c.Get(contextIDKey)
	if !ok {
		return ""
	}
	id, _ := value.(string)
	return id
}

// RotateID はローテーション期限を待たずにセッションIDを再発行します。
// ログイン成功直後のセッション固定化対策として呼ばれます。
func RotateID(c *gin.Context, store Store, secure bool) {
	if newID, ok := store.Rotate(IDFrom(c), time.Now()); ok {
		c.Set(contextIDKey, newID)
		writeCookie(c, newID, CookieMaxAgeSeconds(), secure)
	}
}

// ExpireCookie はセッションクッキーを破棄します。
// 発行時と同じ属性（名前・パス・HttpOnly・SameSite）で過去の有効期限を
// 設定しないとブラウザ側に残ってしまうため、writeCookie を共用します。
func ExpireCookie(c *gin.Context, secure bool) {
	writeCookie(c, "", -1, secure)
}

func writeCookie(c *gin.Context, value string, maxAge int, secure bool) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     CookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}
