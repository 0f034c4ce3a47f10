package users

import (
	"context"
	"errors"
)

// ErrDuplicate は一意制約違反（idUser の重複）を表します。
// アプリケーション側の事前チェックはあくまで最適化であり、
// 重複の最終判定はストアの一意制約が行います。
var ErrDuplicate = errors.New("users: duplicate idUser")

// Store はユーザーレコードの読み書きを抽象化します。
type Store interface {
	// FindByID は idUser でユーザーを検索します。
	// 見つからない場合は (nil, nil) を返します。
	FindByID(ctx context.Context, idUser string) (*User, error)

	// Exists は idUser が既に登録済みかを返します。
	Exists(ctx context.Context, idUser string) (bool, error)

	// Create は新規ユーザーを admitido=0 で登録します。
	// idUser が重複している場合は ErrDuplicate を返します。
	Create(ctx context.Context, user *User) error
}
