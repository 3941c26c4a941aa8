package bot

import (
	"strings"
)

// Intent 消息意图
type Intent int

const (
	// IntentCasual 闲聊
	IntentCasual Intent = iota
	// IntentSuggestion 请求游戏建议
	IntentSuggestion
)

// String 意图名称
func (i Intent) String() string {
	if i == IntentSuggestion {
		return "suggestion"
	}
	return "casual"
}

// 疑问词表
var interrogatives = []string{"what", "which", "should"}

// Classify 判断消息意图
// 规则为关键词对的子串匹配（大小写不敏感），规则之间取或，
// 规则内部的词取与，不依赖词序和具体措辞。
// 歧义时建议意图优先：漏掉一次请求比误判一次闲聊代价更高。
func Classify(text string) Intent {
	content := strings.ToLower(text)

	// 疑问词 + play/game
	if containsAny(content, interrogatives) &&
		(strings.Contains(content, "play") || strings.Contains(content, "game")) {
		return IntentSuggestion
	}

	// suggest/recommend + game
	if (strings.Contains(content, "suggest") || strings.Contains(content, "recommend")) &&
		strings.Contains(content, "game") {
		return IntentSuggestion
	}

	// give me + game/suggestion
	if strings.Contains(content, "give me") &&
		(strings.Contains(content, "game") || strings.Contains(content, "suggestion")) {
		return IntentSuggestion
	}

	// 固定短语
	fixed := []string{
		"any suggestions",
		"any suggestion",
		"game suggestion",
		"pick a game",
		"choose a game",
	}
	if containsAny(content, fixed) {
		return IntentSuggestion
	}

	return IntentCasual
}

// containsAny 判断是否包含任一子串
func containsAny(content string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(content, term) {
			return true
		}
	}
	return false
}
