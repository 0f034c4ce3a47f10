package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-gateway/internal/session"
)

// RequireLogin は未ログインのリクエストをログイン画面へ戻すミドルウェアを返します。
// 保護対象のアクション（dashboard）の手前に置きます。
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := session.StateFrom(c)
		if state == nil || !state.LoggedIn() {
			c.Redirect(http.StatusFound, redirectLogin)
			c.Abort()
			return
		}
	}
}
