package observers

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
)

func TestNewAllCallbacks(t *testing.T) {
	assert.NotNil(t, NewAllCallbacks())
	assert.NotNil(t, NewPromptCallbacks())
}

func TestLastUserContent(t *testing.T) {
	msgs := []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage(" 第一问 "),
		nil,
		schema.AssistantMessage("答", nil),
		schema.UserMessage(" 第二问 "),
		schema.AssistantMessage("答2", nil),
	}
	assert.Equal(t, "第二问", lastUserContent(msgs))
	assert.Equal(t, "", lastUserContent([]*schema.Message{schema.SystemMessage("sys")}))
}

func TestClip(t *testing.T) {
	short := "合同"
	assert.Equal(t, short, clip(short))

	long := strings.Repeat("条", maxLoggedContent+10)
	got := clip(long)
	assert.Equal(t, maxLoggedContent+1, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}
