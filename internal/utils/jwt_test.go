package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager(
		"test-secret-key",
		1*time.Hour,
		7*24*time.Hour,
	)
}

func (suite *JWTTestSuite) TestNewJWTManager() {
	manager := NewJWTManager("secret", 1*time.Hour, 24*time.Hour)
	suite.NotNil(manager)
	suite.Equal(1*time.Hour, manager.GetTokenExpiry("access"))
	suite.Equal(24*time.Hour, manager.GetTokenExpiry("refresh"))
}

// 测试生成并验证访问令牌
func (suite *JWTTestSuite) TestGenerateAndValidateAccessToken() {
	token, err := suite.manager.GenerateAccessToken("admin", "admin", "session-1")
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal("admin", claims.Username)
	suite.Equal("admin", claims.Role)
	suite.Equal("session-1", claims.SessionID)
	suite.Equal("access", claims.TokenType)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	manager := NewJWTManager("test-secret-key", -1*time.Hour, 24*time.Hour)
	token, err := manager.GenerateAccessToken("admin", "admin", "session-1")
	suite.NoError(err)

	_, err = manager.ValidateToken(token)
	suite.ErrorIs(err, ErrExpiredToken)
}

// 测试错误密钥
func (suite *JWTTestSuite) TestWrongSecret() {
	token, err := suite.manager.GenerateAccessToken("admin", "admin", "session-1")
	suite.NoError(err)

	other := NewJWTManager("other-secret", 1*time.Hour, 24*time.Hour)
	_, err = other.ValidateToken(token)
	suite.Error(err)
}

// 测试格式错误的令牌
func (suite *JWTTestSuite) TestMalformedToken() {
	_, err := suite.manager.ValidateToken("not.a.token")
	suite.Error(err)
}

// 测试刷新令牌换取新的访问令牌
func (suite *JWTTestSuite) TestRefreshAccessToken() {
	refresh, err := suite.manager.GenerateRefreshToken("admin", "session-1")
	suite.NoError(err)

	access, err := suite.manager.RefreshAccessToken(refresh, "admin")
	suite.NoError(err)

	claims, err := suite.manager.ValidateToken(access)
	suite.NoError(err)
	suite.Equal("access", claims.TokenType)
	suite.Equal("admin", claims.Username)
	suite.Equal("session-1", claims.SessionID)
}

// 测试访问令牌不能当刷新令牌用
func (suite *JWTTestSuite) TestRefreshRejectsAccessToken() {
	access, err := suite.manager.GenerateAccessToken("admin", "admin", "session-1")
	suite.NoError(err)

	_, err = suite.manager.RefreshAccessToken(access, "admin")
	suite.Error(err)
}

func TestJWTTestSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
