package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/futig/ragchat/internal/entity"
)

func TestRenderAnswer(t *testing.T) {
	answer := &entity.AnswerDTO{
		Answer: "Restart the router first. [source1]",
		Sources: []entity.SourceRef{
			{Label: "source1", Source: "docs/router.txt"},
			{Label: "source2", Source: "docs/dns.md"},
		},
	}

	text := renderAnswer(answer)

	assert.Contains(t, text, "Restart the router first. [source1]")
	assert.Contains(t, text, "References:")
	assert.Contains(t, text, "[source1] docs/router.txt")
	assert.Contains(t, text, "[source2] docs/dns.md")
}

func TestRenderAnswer_NoSources(t *testing.T) {
	answer := &entity.AnswerDTO{Answer: "Could you clarify which device you mean?"}

	text := renderAnswer(answer)

	assert.Equal(t, "Could you clarify which device you mean?", text)
	assert.NotContains(t, text, "References:")
}
