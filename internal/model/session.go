// Package model はドメインモデルを定義する。
package model

import "time"

// Session はログイン済み呼び出し元のサーバー側セッションを表す。
// AccessTokenはプロセス境界の外に出してはならない（レスポンス・ログへの出力禁止）。
type Session struct {
	ID          string
	AccessToken string
	Login       string
	Scope       string
	CreatedAt   time.Time
}
