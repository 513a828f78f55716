package auth

import (
	"crypto/sha256"
	"fmt"

	"github.com/gorilla/securecookie"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "session_id"

// CookieCodec はセッションIDをHMAC署名・暗号化してCookie値に変換する。
// 署名鍵はSESSION_SECRET、暗号鍵はそのSHA-256ハッシュから導出する。
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

// NewCookieCodec はCookieCodecを生成する。maxAgeは署名に含めるタイムスタンプの有効期間（秒）。
func NewCookieCodec(secret string, maxAge int) *CookieCodec {
	blockKey := sha256.Sum256([]byte(secret))
	sc := securecookie.New([]byte(secret), blockKey[:])
	if maxAge > 0 {
		sc.MaxAge(maxAge)
	}
	return &CookieCodec{sc: sc}
}

// EncodeSessionID はセッションIDをCookie値に変換する。
func (c *CookieCodec) EncodeSessionID(sessionID string) (string, error) {
	v, err := c.sc.Encode(SessionCookieName, sessionID)
	if err != nil {
		return "", fmt.Errorf("failed to encode session cookie: %w", err)
	}
	return v, nil
}

// DecodeSessionID はCookie値を検証してセッションIDを取り出す。
// 改ざん・期限切れ・別の鍵で署名された値はエラーになる。
func (c *CookieCodec) DecodeSessionID(value string) (string, error) {
	var sessionID string
	if err := c.sc.Decode(SessionCookieName, value, &sessionID); err != nil {
		return "", fmt.Errorf("invalid session cookie: %w", err)
	}
	return sessionID, nil
}
