package completion

import (
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiHistoryMapsRoles(t *testing.T) {
	history := geminiHistory([]ChatMessage{
		{Role: ChatRoleSystem, Content: "instruções"},
		{Role: ChatRoleUser, Content: "Olá"},
		{Role: ChatRoleAssistant, Content: "Como posso ajudar?"},
		{Role: ChatRoleUser, Content: "   "},
	})

	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "model", history[1].Role)
	assert.Equal(t, genai.Text("Como posso ajudar?"), history[1].Parts[0])
}
