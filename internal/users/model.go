// Package users はユーザーレコードの永続化を担当します。
package users

// User は usuarios テーブルの1レコードを表します。
type User struct {
	// IDUser はログイン名として機能する一意の識別子です（8〜15文字）。
	IDUser string

	// PasswordHash は bcrypt でハッシュ化されたパスワードです。
	// 平文のパスワードは保存も比較もしません。
	PasswordHash string

	// Nombre / Apellidos は表示用の氏名です。
	Nombre    string
	Apellidos string

	// Admitido は管理者による承認フラグです（DB上は 0/1）。
	// 登録直後は false で、承認されるまでログインできません。
	Admitido bool
}
