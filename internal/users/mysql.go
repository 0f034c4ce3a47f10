package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const tableName = "usuarios"

// MySQLStore は MySQL/MariaDB を使った Store の実装です。
// すべてのクエリはプレースホルダ付きのバインドクエリで発行します
// （SQL文字列への連結は行わない）。
type MySQLStore struct {
	db *sql.DB
}

// Open はデータベースへ接続し、疎通確認まで行います。
func Open(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// NewMySQLStore は MySQLStore を作成します。
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// FindByID は idUser でユーザーを検索します。
func (s *MySQLStore) FindByID(ctx context.Context, idUser string) (*User, error) {
	query := "SELECT idUser, password, nombre, apellidos, admitido FROM " + tableName + " WHERE idUser = ? LIMIT 1"

	var user User
	err := s.db.QueryRowContext(ctx, query, idUser).Scan(
		&user.IDUser,
		&user.PasswordHash,
		&user.Nombre,
		&user.Apellidos,
		&user.Admitido,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return &user, nil
}

// Exists は idUser が既に登録済みかを返します。
func (s *MySQLStore) Exists(ctx context.Context, idUser string) (bool, error) {
	query := "SELECT 1 FROM " + tableName + " WHERE idUser = ? LIMIT 1"

	var one int
	err := s.db.QueryRowContext(ctx, query, idUser).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check user exists: %w", err)
	}

	return true, nil
}

// Create は新規ユーザーを admitido=0 で登録します。
// idUser の一意制約に違反した場合は ErrDuplicate を返します。
// 事前の Exists チェックと INSERT の間に別リクエストが割り込む可能性があるため、
// 重複の最終判定はこの一意制約に任せます。
func (s *MySQLStore) Create(ctx context.Context, user *User) error {
	query := "INSERT INTO " + tableName + " (idUser, password, nombre, apellidos, admitido) VALUES (?, ?, ?, ?, 0)"

	_, err := s.db.ExecContext(ctx, query,
		user.IDUser,
		user.PasswordHash,
		user.Nombre,
		user.Apellidos,
	)
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

// isDuplicateEntry は MySQL の ER_DUP_ENTRY (1062) かどうかを判定します。
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
