package bot

import (
	"sync"
	"time"
)

// Turn 会话中的一条消息
// 仅驻内存，进程重启即清空，不做持久化
type Turn struct {
	ChannelID string
	Username  string
	Text      string
	Timestamp time.Time
}

// ConversationStore 按频道维护的滚动会话窗口
// 显式持有并注入使用，不做包级单例
type ConversationStore struct {
	mu       sync.Mutex
	capacity int
	channels map[string][]Turn
}

// NewConversationStore 创建会话窗口存储
func NewConversationStore(capacity int) *ConversationStore {
	if capacity <= 0 {
		capacity = 5
	}
	return &ConversationStore{
		capacity: capacity,
		channels: make(map[string][]Turn),
	}
}

// Append 追加最新消息，超过容量时淘汰最旧的
func (s *ConversationStore) Append(channelID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := append(s.channels[channelID], turn)
	if len(turns) > s.capacity {
		turns = turns[len(turns)-s.capacity:]
	}
	s.channels[channelID] = turns
}

// Window 返回频道的会话窗口，从旧到新
// 未见过的频道返回空切片
func (s *ConversationStore) Window(channelID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := s.channels[channelID]
	// 返回副本，调用方持有期间不受后续追加影响
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
