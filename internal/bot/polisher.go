package bot

import (
	"strings"
	"unicode"
)

// Strictness 输出后处理强度
type Strictness int

const (
	// StrictnessLight 轻度处理，用于建议回复（需要容纳具体游戏名）
	StrictnessLight Strictness = iota
	// StrictnessStrict 严格处理，用于闲聊回复（更短更干脆）
	StrictnessStrict
)

// 输出被清理到空时的兜底短语
const fallbackPhrase = "hmm, not sure what to say"

// 自我指涉免责声明标记，命中的句子整句去掉
var disclaimerMarkers = []string{
	"as an ai",
	"as a language model",
	"i'm an ai",
	"i am an ai",
	"i'm just a bot",
	"i don't have personal",
}

// 泄漏的提示模板标记，命中的行整行去掉
var templateMarkers = []string{
	"you are mitch",
	"respond to:",
	"respond:",
	"recent messages",
	"{context}",
	"{message}",
	"{player_count}",
	"{games}",
	"system prompt",
}

// 折叠对象标点集，如 "!!!"、"??"、"...."
const collapsiblePunct = "!?.,;:"

// Polisher 生成文本后处理器
type Polisher struct {
	lightMaxLength  int
	strictMaxLength int
}

// NewPolisher 创建后处理器
// lightMax 对应建议回复上限，strictMax 对应闲聊回复上限
func NewPolisher(lightMax, strictMax int) *Polisher {
	if lightMax <= 0 {
		lightMax = 300
	}
	if strictMax <= 0 {
		strictMax = 200
	}
	return &Polisher{
		lightMaxLength:  lightMax,
		strictMaxLength: strictMax,
	}
}

// Polish 清理并校验生成文本，输出保证非空
func (p *Polisher) Polish(text string, strictness Strictness) string {
	maxLen := p.lightMaxLength
	if strictness == StrictnessStrict {
		maxLen = p.strictMaxLength
	}

	text = stripTemplateLines(text)
	// 先折叠重复标点，分句才不会把 "????" 拆成一串单字符句子
	text = collapseRepeatedPunct(text)
	text = stripDisclaimerSentences(text)

	if strictness == StrictnessStrict {
		text = stripEmoji(text)
	}

	text = strings.TrimSpace(text)
	text = truncateAtWordBoundary(text, maxLen)

	if strictness == StrictnessStrict {
		text = lowerFirstRune(text)
	}

	if text == "" {
		return fallbackPhrase
	}
	return text
}

// stripTemplateLines 去掉泄漏提示模板的行
func stripTemplateLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		lower := strings.ToLower(line)
		leaked := false
		for _, marker := range templateMarkers {
			if strings.Contains(lower, marker) {
				leaked = true
				break
			}
		}
		if !leaked {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// collapseRepeatedPunct 把连续重复的标点折叠为单个
func collapseRepeatedPunct(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	prev := rune(-1)
	for _, r := range text {
		if r == prev && strings.ContainsRune(collapsiblePunct, r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// stripDisclaimerSentences 去掉自我指涉免责声明的句子
func stripDisclaimerSentences(text string) string {
	sentences := splitSentences(text)
	var kept []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		disclaimer := false
		for _, marker := range disclaimerMarkers {
			if strings.Contains(lower, marker) {
				disclaimer = true
				break
			}
		}
		if !disclaimer {
			kept = append(kept, sentence)
		}
	}
	return strings.Join(kept, " ")
}

// splitSentences 按句末标点粗粒度分句，保留标点
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// stripEmoji 去掉表情符号等象形字符
func stripEmoji(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// isEmoji 判断是否为表情/象形码点
func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // 表情、符号、补充象形
		return true
	case r >= 0x2600 && r <= 0x27BF: // 杂项符号、装饰符号
		return true
	case r >= 0xFE00 && r <= 0xFE0F: // 变体选择符
		return true
	case r == 0x200D: // 零宽连接符
		return true
	}
	return false
}

// truncateAtWordBoundary 按词边界截断，绝不从词中间切开
func truncateAtWordBoundary(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}

	cut := string(runes[:maxLen])
	if idx := strings.LastIndexFunc(cut, unicode.IsSpace); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

// lowerFirstRune 首字符归一为小写，与角色的口吻一致
func lowerFirstRune(text string) string {
	runes := []rune(text)
	if len(runes) == 0 {
		return text
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}
