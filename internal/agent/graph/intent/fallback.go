// Package intent holds the deterministic keyword policy used when the
// classifier model gives no usable answer.
package intent

import (
	"strings"

	"github.com/Chative-core-poc-v1/lexroute/internal/agent/model"
)

var (
	recapKeywords    = []string{"回顾", "还记得", "回溯", "总结一下", "之前说", "recap", "do you remember", "remind me"}
	draftKeywords    = []string{"起草", "生成", "草拟", "draft", "generate", "write up"}
	reviewKeywords   = []string{"审核", "润色", "优化", "修改", "review", "improve", "revise", "polish"}
	contractKeywords = []string{"合同", "协议", "contract", "agreement"}
	searchKeywords   = []string{"查询", "检索", "找", "法规", "法条", "search", "look up", "find", "regulation", "statute"}
)

// rule is one step of the fallback table; order matters because the keyword
// sets overlap.
type rule struct {
	route model.Route
	match func(q string) bool
}

var rules = []rule{
	{model.RouteMemory, func(q string) bool { return containsAny(q, recapKeywords) }},
	{model.RouteDraft, func(q string) bool { return containsAny(q, draftKeywords) && containsAny(q, contractKeywords) }},
	{model.RouteReview, func(q string) bool { return containsAny(q, reviewKeywords) && containsAny(q, contractKeywords) }},
	{model.RouteLookup, func(q string) bool { return containsAny(q, searchKeywords) }},
}

// Fallback classifies question by keywords. It always returns a valid route.
func Fallback(question string) model.Route {
	q := strings.ToLower(question)
	for _, r := range rules {
		if r.match(q) {
			return r.route
		}
	}
	return model.DefaultRoute
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
