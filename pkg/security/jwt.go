package security

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lk2023060901/gachadraw/pkg/config"
)

// JWTConfig JWT 配置
type JWTConfig struct {
	// SecretKey HS 系列算法的对称密钥
	SecretKey string `mapstructure:"secret_key"`
	// PublicKeyFile / PrivateKeyFile RS、ES 系列算法的 PEM 文件
	PublicKeyFile  string `mapstructure:"public_key_file"`
	PrivateKeyFile string `mapstructure:"private_key_file"`

	// Algorithm 签名算法，默认 HS256
	Algorithm string        `mapstructure:"algorithm"`
	ExpiresIn time.Duration `mapstructure:"expires_in"`
	Issuer    string        `mapstructure:"issuer"`

	// TokenPrefix 默认 "Bearer "
	TokenPrefix string `mapstructure:"token_prefix"`
	HeaderName  string `mapstructure:"header_name"`
}

// DefaultJWTConfig 返回默认 JWT 配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		Algorithm:   "HS256",
		ExpiresIn:   24 * time.Hour,
		TokenPrefix: "Bearer ",
		HeaderName:  "Authorization",
	}
}

// Claims 登录签发的令牌载荷
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// JWTManager 签发与校验令牌
type JWTManager struct {
	config     *JWTConfig
	method     jwt.SigningMethod
	publicKey  any
	privateKey any
}

// NewJWTManager 创建 JWT 管理器
func NewJWTManager(cfg *JWTConfig) (*JWTManager, error) {
	merged, err := config.MergeConfig(DefaultJWTConfig(), cfg)
	if err != nil {
		return nil, err
	}

	method := jwt.GetSigningMethod(strings.ToUpper(merged.Algorithm))
	if method == nil || method == jwt.SigningMethodNone {
		return nil, fmt.Errorf("%w: %s", ErrAlgorithmInvalid, merged.Algorithm)
	}
	merged.Algorithm = method.Alg()

	m := &JWTManager{config: merged, method: method}
	if err := m.loadKeys(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *JWTManager) loadKeys() error {
	alg := m.config.Algorithm
	if strings.HasPrefix(alg, "HS") {
		if m.config.SecretKey == "" {
			return ErrSecretKeyEmpty
		}
		m.publicKey = []byte(m.config.SecretKey)
		m.privateKey = []byte(m.config.SecretKey)
		return nil
	}

	if m.config.PublicKeyFile != "" {
		data, err := os.ReadFile(m.config.PublicKeyFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
		}
		if strings.HasPrefix(alg, "RS") {
			m.publicKey, err = jwt.ParseRSAPublicKeyFromPEM(data)
		} else {
			m.publicKey, err = jwt.ParseECPublicKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPublicKeyLoad, err)
		}
	}
	if m.config.PrivateKeyFile != "" {
		data, err := os.ReadFile(m.config.PrivateKeyFile)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
		}
		if strings.HasPrefix(alg, "RS") {
			m.privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(data)
		} else {
			m.privateKey, err = jwt.ParseECPrivateKeyFromPEM(data)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPrivateKeyLoad, err)
		}
	}
	return nil
}

// GenerateToken 为用户签发令牌，主要供测试与运维工具使用
func (m *JWTManager) GenerateToken(userID int64) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.ExpiresIn)),
			Issuer:    m.config.Issuer,
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(m.method, claims).SignedString(m.privateKey)
}

// ValidateToken 校验令牌，允许带前缀
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	tokenString = strings.TrimPrefix(tokenString, m.config.TokenPrefix)
	if tokenString == "" {
		return nil, ErrTokenMissing
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != m.config.Algorithm {
			return nil, ErrAlgorithmMismatch
		}
		return m.publicKey, nil
	})
	if err != nil {
		return nil, wrapError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.UserID == 0 {
		return nil, ErrUserIDMissing
	}
	return claims, nil
}

// Config 获取配置
func (m *JWTManager) Config() *JWTConfig {
	return m.config
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotValidYet
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
		return ErrSignatureInvalid
	case errors.Is(err, ErrAlgorithmMismatch):
		return ErrAlgorithmMismatch
	default:
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
}

type claimsKey struct{}

// WithClaims 将 Claims 存入 context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext 从 context 获取 Claims
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok
}
