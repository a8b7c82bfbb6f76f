package memory

import (
	"sort"
	"strings"

	"github.com/seedchat/memkit/types"
)

// ContentMaxRunes is the soft cap applied to memory content at creation.
const ContentMaxRunes = 200

// importanceKeywords raise the importance score by 0.1 per occurrence.
// The set mixes Chinese and English because the chat clients feeding the
// engine are bilingual.
var importanceKeywords = []string{
	"重要", "记住", "必须", "名字", "生日", "喜欢", "讨厌", "习惯",
	"important", "remember", "must", "name", "birthday", "like", "dislike", "habit",
}

// classifyRules map a memory type to its trigger keywords. Evaluation
// order is fixed: preference, then skill, then fact; first match wins
// and everything else is a plain conversation memory.
var classifyRules = []struct {
	memType  types.MemoryType
	keywords []string
}{
	{types.MemoryPreference, []string{"喜欢", "讨厌", "爱好", "偏好", "最爱", "like", "love", "hate", "prefer", "favorite"}},
	{types.MemorySkill, []string{"会", "技能", "擅长", "学习", "练习", "skill", "can", "able", "learn"}},
	{types.MemoryFact, []string{"是", "名字", "生日", "住在", "工作", "name", "birthday", "live", "work"}},
}

// tagCategories map a tag to the keywords that trigger it. Each
// category is evaluated independently; a memory may carry several tags.
var tagCategories = map[string][]string{
	"个人信息": {"名字", "生日", "年龄", "电话", "地址", "邮箱"},
	"偏好":   {"喜欢", "讨厌", "爱好", "偏好", "最爱"},
	"技能":   {"会", "技能", "擅长", "编程", "学习"},
	"情绪":   {"开心", "难过", "生气", "高兴", "伤心", "焦虑"},
	"计划":   {"计划", "打算", "准备", "明天", "下周", "以后"},
}

// Scorer holds the pure scoring heuristics applied at ingestion time.
// All methods are deterministic and safe for concurrent use.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// ComputeImportance estimates how worth-retaining a piece of content is.
// Base 0.5, plus a length factor capped at 0.3, plus 0.1 per importance
// keyword occurrence, plus 0.05 per question/exclamation mark. The
// result is clamped to [0,1].
func (s *Scorer) ComputeImportance(content string) float64 {
	score := 0.5

	runes := []rune(content)
	lengthFactor := float64(len(runes)) / 100.0
	if lengthFactor > 0.3 {
		lengthFactor = 0.3
	}
	score += lengthFactor

	lower := strings.ToLower(content)
	for _, kw := range importanceKeywords {
		score += 0.1 * float64(strings.Count(lower, kw))
	}

	for _, r := range content {
		switch r {
		case '?', '!', '？', '！':
			score += 0.05
		}
	}

	return clamp01(score)
}

// Classify assigns a memory type to content. The first matching rule
// wins; content matching nothing is a conversation memory.
func (s *Scorer) Classify(content string) types.MemoryType {
	lower := strings.ToLower(content)
	for _, rule := range classifyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.memType
			}
		}
	}
	return types.MemoryConversation
}

// ExtractTags returns the tag categories whose keyword lists match the
// content. The result is sorted by category name for determinism.
func (s *Scorer) ExtractTags(content string) []string {
	lower := strings.ToLower(content)
	var tags []string
	for category, keywords := range tagCategories {
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, category)
				break
			}
		}
	}
	sort.Strings(tags)
	return tags
}

// ExtractKeyContent bounds content length at creation time: content of
// 200 runes or fewer passes through unchanged, longer content is cut at
// 200 runes with an ellipsis appended.
func (s *Scorer) ExtractKeyContent(content string) string {
	runes := []rune(content)
	if len(runes) <= ContentMaxRunes {
		return content
	}
	return string(runes[:ContentMaxRunes]) + "..."
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
