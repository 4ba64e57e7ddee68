package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Claims 是 API 访问令牌的 claims
type Claims struct {
	Name   string   `json:"name"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

// IssueToken 使用 HS256 签发令牌，ttl<=0 时不设置过期时间
func IssueToken(secret []byte, subject string, scopes []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:   subject,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken 验证签名与有效期并返回 claims
func ParseToken(secret []byte, tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// BearerAuth 校验 Authorization: Bearer <jwt>
// secret 为空时不做任何校验；skip 中的路径（精确匹配）以及 OPTIONS 请求直接放行
func BearerAuth(secret string, authLogger *slog.Logger, skip ...string) gin.HandlerFunc {
	if secret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	key := []byte(secret)
	open := make(map[string]bool, len(skip))
	for _, p := range skip {
		open[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if open[path] || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		auth := c.GetHeader("Authorization")
		if len(auth) < 8 || !strings.HasPrefix(auth, "Bearer ") {
			authLogger.Warn("missing bearer token", "method", c.Request.Method, "path", path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "code": "UNAUTHORIZED"})
			return
		}
		claims, err := ParseToken(key, auth[7:])
		if err != nil {
			authLogger.Warn("invalid token", "method", c.Request.Method, "path", path, "error", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "code": "UNAUTHORIZED"})
			return
		}
		c.Set("subject", claims.Name)
		c.Set("scopes", claims.Scopes)
		c.Next()
	}
}
