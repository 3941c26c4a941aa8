package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestNew 测试创建应用错误
func TestNew(t *testing.T) {
	err := New(ErrEmptyLibrary)
	assert.Equal(t, ErrEmptyLibrary, err.Code)
	assert.Equal(t, "游戏库为空", err.Message)
	assert.Contains(t, err.Error(), "2000")
}

// TestNewf 测试格式化错误详情
func TestNewf(t *testing.T) {
	err := Newf(ErrEmptyCandidates, "人数=%d", 7)
	assert.Equal(t, ErrEmptyCandidates, err.Code)
	assert.Contains(t, err.Details, "人数=7")
}

// TestWrap 测试错误包装
func TestWrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, ErrAIUnavailable)

	assert.Equal(t, ErrAIUnavailable, err.Code)
	assert.Equal(t, cause, stderrors.Unwrap(err))
	assert.Contains(t, err.Details, "connection refused")

	// nil错误包装返回nil
	assert.Nil(t, Wrap(nil, ErrUnknown))
}

// TestWrap_PreservesAppErrorCode 测试包装已有AppError保留原错误码
func TestWrap_PreservesAppErrorCode(t *testing.T) {
	inner := New(ErrAITimeout, "60s")
	outer := Wrap(inner, ErrUnknown, "生成失败")

	assert.Equal(t, ErrAITimeout, outer.Code)
	assert.Contains(t, outer.Details, "生成失败")
}

// TestIs 测试错误码判断
func TestIs(t *testing.T) {
	err := New(ErrRateLimitExceeded)
	assert.True(t, Is(err, ErrRateLimitExceeded))
	assert.False(t, Is(err, ErrEmptyLibrary))
	assert.False(t, Is(nil, ErrUnknown))
	assert.False(t, Is(stderrors.New("plain"), ErrUnknown))
}

// TestGetCode 测试错误码提取
func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrorCode(0), GetCode(nil))
	assert.Equal(t, ErrUnknown, GetCode(stderrors.New("plain")))
	assert.Equal(t, ErrEmptyCandidates, GetCode(New(ErrEmptyCandidates)))
}

// TestCaptureStack 测试调用栈捕获
func TestCaptureStack(t *testing.T) {
	err := New(ErrUnknown)
	assert.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestCaptureStack")
}
