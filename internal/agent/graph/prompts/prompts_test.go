package prompts

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderRouter(t *testing.T) {
	msgs, err := RenderRouter(context.Background(), "", "帮我起草一份服务合同")
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, `{"router": "draft"}`)
	for _, label := range []string{"memory", "draft", "review", "lookup", "smalltalk"} {
		assert.Contains(t, msgs[0].Content, label)
	}
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "本轮问题：帮我起草一份服务合同")
	assert.Contains(t, msgs[1].Content, NonePlaceholder)
}

func TestRenderMemory(t *testing.T) {
	msgs, err := RenderMemory(context.Background(), "user: a\nassistant: b")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "user: a\nassistant: b")
}

func TestRenderDraft_DefaultsWhenEmpty(t *testing.T) {
	msgs, err := RenderDraft(context.Background(), "  ")
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "要素："+DefaultDraftRequest)

	msgs, err = RenderDraft(context.Background(), "甲方：A公司；服务期一年")
	require.NoError(t, err)
	assert.Contains(t, msgs[0].Content, "甲方：A公司；服务期一年")
}

func TestReviewTarget(t *testing.T) {
	target, ok := ReviewTarget(" 第一条 ... ", "帮我看看")
	assert.True(t, ok)
	assert.Equal(t, "第一条 ...", target)

	target, ok = ReviewTarget("", "帮我看看这份合同")
	assert.True(t, ok)
	assert.Equal(t, "帮我看看这份合同", target)

	target, ok = ReviewTarget(" ", "")
	assert.False(t, ok)
	assert.Equal(t, NoReviewTarget, target)
}

func TestRenderReview_ForbidsFabrication(t *testing.T) {
	msgs, err := RenderReview(context.Background(), NoReviewTarget)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, "不要编造")
	assert.Contains(t, msgs[1].Content, NoReviewTarget)
	assert.Contains(t, msgs[1].Content, "文本未提供")
	assert.Contains(t, msgs[1].Content, "信息完整性评估")
	assert.Contains(t, msgs[1].Content, "3-5")
}

func TestRenderLookup_Placeholders(t *testing.T) {
	msgs, err := RenderLookup(context.Background(), LookupInput{Question: "试用期多久"})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	user := msgs[1].Content
	assert.Contains(t, user, "试用期多久")
	assert.Contains(t, user, NoSnippetsPlaceholder)
	assert.Contains(t, user, "【最近对话摘要】\n"+NonePlaceholder)

	msgs, err = RenderLookup(context.Background(), LookupInput{
		Question: "q", History: "user: hi", Context: "合同正文", Snippets: "- s (source: u)",
	})
	require.NoError(t, err)
	user = msgs[1].Content
	assert.Contains(t, user, "- s (source: u)")
	assert.Contains(t, user, "合同正文")
	assert.NotContains(t, user, NoSnippetsPlaceholder)
}

func TestRenderSmalltalk(t *testing.T) {
	assert.Equal(t, DefaultGreeting, RenderSmalltalk("")[0].Content)
	assert.Equal(t, "讲个笑话", RenderSmalltalk("讲个笑话")[0].Content)
}
