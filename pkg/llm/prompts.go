package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bargain-backend/model"

	"go.uber.org/zap"
)

const (
	analysisPrefix = "请分析这个商品需求："

	analysisSystemPrompt = `你是一个专业的商品需求分析助手。请分析用户的商品需求，提取关键信息。

请返回JSON格式的分析结果，包含：
- keywords: 搜索关键词列表
- category: 商品类别
- features: 重要特征列表
- price_sensitivity: 价格敏感度(high/medium/low)
- quality_requirements: 质量要求`

	negotiationSystemPrompt = `你是一个专业的商品谈判助手。请根据商品信息、卖家信息和对话历史，生成合适的谈判消息。

谈判原则：
1. 礼貌友好，建立信任
2. 突出商品价值和自己的诚意
3. 合理议价，不要过于激进
4. 考虑商品状况和市场价格
5. 保持专业和耐心

请直接返回要发送的消息内容，不要包含其他格式。`

	negotiationTemperature = 0.8
	defaultNegotiationText = "您好，我对这个商品很感兴趣，请问价格还能优惠一些吗？"
)

// SellerInfo identifies the counterpart of a negotiation.
type SellerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AnalyzeRequirement turns a free-text query into search keywords and
// attributes. It never fails; unusable answers yield DefaultAnalysis.
func (g *Gateway) AnalyzeRequirement(ctx context.Context, query string) model.RequirementAnalysis {
	messages := []Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: analysisPrefix + query},
	}

	reply := g.ChatCompletion(ctx, messages, "", defaultTemperature, defaultMaxTokens, 0)

	var a model.RequirementAnalysis
	if err := json.Unmarshal([]byte(ExtractJSON(reply)), &a); err != nil {
		g.logger.Warn("could not parse requirement analysis, using default", zap.Error(err))
		return DefaultAnalysis(query)
	}
	if len(a.Keywords) == 0 {
		g.logger.Warn("requirement analysis has no keywords, using default")
		return DefaultAnalysis(query)
	}
	if a.Features == nil {
		a.Features = []string{}
	}
	return a
}

// GenerateNegotiationMessage writes the next buyer message for a seller.
// The returned text is never empty.
func (g *Gateway) GenerateNegotiationMessage(ctx context.Context, item model.Candidate, seller SellerInfo, history []model.ConversationTurn, targetPrice float64) string {
	messages := []Message{
		{Role: "system", Content: negotiationSystemPrompt},
		{Role: "user", Content: negotiationPrompt(item, seller, history, targetPrice)},
	}

	reply := strings.TrimSpace(g.ChatCompletion(ctx, messages, "", negotiationTemperature, defaultMaxTokens, 0))
	if reply == "" {
		return defaultNegotiationText
	}
	return reply
}

func negotiationPrompt(item model.Candidate, seller SellerInfo, history []model.ConversationTurn, targetPrice float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "商品信息：%s，标价 %.2f 元", item.Title, item.Price)
	if item.Location != "" {
		fmt.Fprintf(&b, "，所在地 %s", item.Location)
	}
	if item.Description != "" {
		fmt.Fprintf(&b, "，描述：%s", item.Description)
	}
	b.WriteString("\n")

	name := seller.Name
	if name == "" {
		name = seller.ID
	}
	fmt.Fprintf(&b, "卖家信息：%s\n", name)

	b.WriteString("对话历史：")
	if len(history) == 0 {
		b.WriteString("无\n")
	} else {
		b.WriteString("\n")
		for _, turn := range history {
			speaker := "买家"
			if turn.Direction == model.DirectionReceived {
				speaker = "卖家"
			}
			fmt.Fprintf(&b, "%s：%s\n", speaker, turn.Text)
		}
	}

	fmt.Fprintf(&b, "目标价格：%.2f 元\n\n请生成下一条谈判消息。", targetPrice)
	return b.String()
}
