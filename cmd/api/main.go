// Package main は認証ゲートウェイAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/auth-gateway/internal/auth"
	"github.com/yourusername/auth-gateway/internal/config"
	"github.com/yourusername/auth-gateway/internal/session"
	"github.com/yourusername/auth-gateway/internal/users"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベース接続（資格情報ストア）
	db, err := users.Open(context.Background(), cfg.DSN(), cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// セッションのライフサイクル管理は他のあらゆる処理より先に行う
	secure := cfg.GinMode == gin.ReleaseMode
	store := session.NewMemoryStore()
	router.Use(session.Lifecycle(store, secure))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	// CORS許可オリジンを設定（カンマ区切りの文字列を配列に変換）
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// ルーティングの設定
	manager := auth.NewManager(users.NewMySQLStore(db))
	handler := auth.NewHandler(manager, store, secure)
	setupRoutes(router, handler)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "auth-gateway-api",
		"version": "0.1.0",
	})
}

// setupRoutes はヘルスチェックと action ディスパッチャーを配線します。
func setupRoutes(router *gin.Engine, handler *auth.Handler) {
	// まずは誰でも叩けるヘルスチェックを登録
	router.GET("/health", handleHealth)

	// すべてのアクションは単一のエントリーポイントに action パラメータで届く
	dispatcher := newDispatcher(handler)
	router.GET("/", dispatcher)
	router.POST("/", dispatcher)
}

// newDispatcher は action パラメータで処理を振り分けるハンドラーを返します。
//
// アクション一覧:
//   - login（既定）   : ログインフォームの表示
//   - authenticate    : ログイン処理（POSTのみ）
//   - dashboard       : 保護ページ（要ログイン）
//   - logout          : セッション破棄
//   - showRegister    : 登録フォームの表示
//   - register        : 登録処理（POSTのみ）
func newDispatcher(handler *auth.Handler) gin.HandlerFunc {
	requireLogin := auth.RequireLogin()

	return func(c *gin.Context) {
		action := c.Query("action")
		if action == "" {
			action = c.PostForm("action")
		}

		switch action {
		case "authenticate":
			// フォーム送信以外で資格情報を受け付けない
			if c.Request.Method != http.MethodPost {
				c.Redirect(http.StatusFound, "/?action=login")
				return
			}
			handler.Authenticate(c)

		case "dashboard":
			requireLogin(c)
			if c.IsAborted() {
				return
			}
			handler.Dashboard(c)

		case "logout":
			handler.Logout(c)

		case "showRegister":
			handler.ShowRegister(c)

		case "register":
			if c.Request.Method != http.MethodPost {
				c.Redirect(http.StatusFound, "/?action=showRegister")
				return
			}
			handler.Register(c)

		default:
			// 未指定・未知のアクションはログインフォームを表示
			handler.ShowLogin(c)
		}
	}
}
