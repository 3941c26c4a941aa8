package chat

import (
	"strings"
	"unicode"
)

// InboundMessage 来自聊天平台的消息事件
type InboundMessage struct {
	ChannelID   string `json:"channel_id"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	Content     string `json:"content"`
	MentionsBot bool   `json:"mentions_bot"`
}

// OutboundMessage 发往聊天平台的回复
type OutboundMessage struct {
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
}

// Transport 聊天传输抽象
// 核心逻辑只依赖这个接口，平台细节都在适配器里
type Transport interface {
	// Events 返回入站消息通道，传输关闭时通道关闭
	Events() <-chan InboundMessage
	// Send 发送一条回复，超长文本由适配器自行分片
	Send(channelID, content string) error
	// Close 关闭传输，幂等
	Close() error
}

// SplitMessage 把超过 maxLen 的文本按词边界切成多段
// 平台的消息长度限制是传输层的事，上层不感知。
// 单个词超长时从词中间硬切，保证每段都不超限。
func SplitMessage(text string, maxLen int) []string {
	if maxLen <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(runes) > maxLen {
		cut := maxLen
		// 在上限内找最后一个空白作为切点
		for i := maxLen; i > 0; i-- {
			if unicode.IsSpace(runes[i-1]) {
				cut = i
				break
			}
		}
		part := strings.TrimSpace(string(runes[:cut]))
		if part != "" {
			parts = append(parts, part)
		}
		runes = runes[cut:]
	}

	if rest := strings.TrimSpace(string(runes)); rest != "" {
		parts = append(parts, rest)
	}
	return parts
}
