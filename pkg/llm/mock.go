package llm

import (
	"encoding/json"
	"strings"

	"bargain-backend/model"
)

const fallbackReply = "好的，我明白了。"

var buyerOpeners = []string{
	"您好！我对这个商品很感兴趣，请问价格还能优惠一些吗？我是诚心想要的。",
	"您好，这个还在吗？诚心想要，价格方面能再让一点吗？",
	"老板你好，东西我很喜欢，如果价格合适的话今天就可以拍下。",
}

// mockResponse answers without a model. It keys off the first user message,
// the same one the live prompts put the request in.
func (g *Gateway) mockResponse(messages []Message) string {
	var user string
	for _, m := range messages {
		if m.Role == "user" {
			user = m.Content
			break
		}
	}

	switch {
	case strings.HasPrefix(user, analysisPrefix):
		query := strings.TrimPrefix(user, analysisPrefix)
		return mockAnalysis(query)
	case strings.Contains(user, "谈判") || strings.Contains(user, "价格"):
		return buyerOpeners[g.intn(len(buyerOpeners))]
	default:
		return fallbackReply
	}
}

func mockAnalysis(query string) string {
	a := DefaultAnalysis(query)
	lower := strings.ToLower(query)
	if strings.Contains(lower, "iphone") || strings.Contains(lower, "手机") {
		a.Category = "数码产品"
	}
	a.QualityRequirements = "良好"

	data, err := json.Marshal(a)
	if err != nil {
		return fallbackReply
	}
	return string(data)
}

// DefaultAnalysis is the analysis used when the model's answer is unusable:
// the query's whitespace tokens become the search keywords.
func DefaultAnalysis(query string) model.RequirementAnalysis {
	keywords := strings.Fields(query)
	if keywords == nil {
		keywords = []string{}
	}
	return model.RequirementAnalysis{
		Keywords:            keywords,
		Category:            "未知",
		Features:            []string{},
		PriceSensitivity:    "medium",
		QualityRequirements: "标准",
	}
}
