package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

// PasswordTestSuite 密码工具测试套件
type PasswordTestSuite struct {
	suite.Suite
}

// 测试密码哈希
func (suite *PasswordTestSuite) TestHashPassword() {
	password := "MySecurePassword123!"

	hash, err := HashPassword(password)
	suite.NoError(err)
	suite.NotEmpty(hash)
	suite.NotEqual(password, hash)
	suite.True(strings.HasPrefix(hash, "$argon2id$"))
}

// 测试相同密码生成不同哈希
func (suite *PasswordTestSuite) TestHashPasswordUniqueness() {
	password := "SamePassword123"

	hash1, err1 := HashPassword(password)
	hash2, err2 := HashPassword(password)

	suite.NoError(err1)
	suite.NoError(err2)
	suite.NotEqual(hash1, hash2)
}

// 测试密码验证
func (suite *PasswordTestSuite) TestVerifyPassword() {
	password := "CorrectHorseBatteryStaple"

	hash, err := HashPassword(password)
	suite.NoError(err)

	ok, err := VerifyPassword(password, hash)
	suite.NoError(err)
	suite.True(ok)

	ok, err = VerifyPassword("wrong-password", hash)
	suite.NoError(err)
	suite.False(ok)
}

// 测试非法哈希格式
func (suite *PasswordTestSuite) TestVerifyPasswordBadFormat() {
	_, err := VerifyPassword("whatever", "not-a-hash")
	suite.Error(err)

	_, err = VerifyPassword("whatever", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	suite.Error(err)
}

// 测试随机字符串长度
func (suite *PasswordTestSuite) TestGenerateRandomString() {
	s1, err := GenerateRandomString(32)
	suite.NoError(err)
	suite.Len(s1, 32)

	s2, err := GenerateRandomString(32)
	suite.NoError(err)
	suite.NotEqual(s1, s2)
}

func (suite *PasswordTestSuite) TestGenerateSessionID() {
	id, err := GenerateSessionID()
	suite.NoError(err)
	suite.Len(id, 32)
}

func TestPasswordTestSuite(t *testing.T) {
	suite.Run(t, new(PasswordTestSuite))
}
