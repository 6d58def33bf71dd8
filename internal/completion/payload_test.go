package completion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeChatPayload(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		ok        bool
		resposta  string
		perguntas []string
	}{
		{
			name:      "plain object",
			text:      `{"resposta":"Olá!","perguntasDinamicas":["O que é CFTV?"]}`,
			ok:        true,
			resposta:  "Olá!",
			perguntas: []string{"O que é CFTV?"},
		},
		{
			name:      "fenced with prose",
			text:      "Claro:\n```json\n{\"resposta\":\" Oi \",\"perguntasDinamicas\":[\" \",\"Prazo?\"]}\n```",
			ok:        true,
			resposta:  "Oi",
			perguntas: []string{"Prazo?"},
		},
		{
			name:      "missing questions is allowed",
			text:      `{"resposta":"Sim."}`,
			ok:        true,
			resposta:  "Sim.",
			perguntas: []string{},
		},
		{name: "empty resposta", text: `{"resposta":"  "}`},
		{name: "not json", text: "Desculpe, não entendi."},
		{name: "truncated", text: `{"resposta":"abc`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := Decode[ChatPayload](tt.text)
			require.Equal(t, tt.ok, parsed.OK(), "err=%v", parsed.Err)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.resposta, parsed.Value.Resposta)
			assert.Equal(t, tt.perguntas, parsed.Value.PerguntasDinamicas)
		})
	}
}

func TestDecodeNoObject(t *testing.T) {
	parsed := Decode[QuestionsPayload]("nada aqui")
	assert.False(t, parsed.OK())
	assert.True(t, errors.Is(parsed.Err, ErrNoJSONObject))
}

func TestDecodeServicePayload(t *testing.T) {
	confirmed := Decode[ServicePayload](`{"servicoConfirmado":"CFTV","sugestoes":[]}`)
	require.True(t, confirmed.OK())
	assert.Equal(t, "CFTV", confirmed.Value.Confirmed())

	ambiguous := Decode[ServicePayload](`{"servicoConfirmado":null,"sugestoes":["Teleproteção Digital","Teleproteção Oplat"]}`)
	require.True(t, ambiguous.OK())
	assert.Empty(t, ambiguous.Value.Confirmed())
	assert.Len(t, ambiguous.Value.Sugestoes, 2)

	blank := Decode[ServicePayload](`{"servicoConfirmado":"  "}`)
	require.True(t, blank.OK())
	assert.Empty(t, blank.Value.Confirmed())

	unrelated := Decode[ServicePayload](`{"foo":"bar"}`)
	assert.False(t, unrelated.OK())
}

func TestParsedOrFallback(t *testing.T) {
	fallback := QuestionsPayload{PerguntasDinamicas: []string{}}

	bad := Decode[QuestionsPayload](`{"outra":"coisa"}`)
	assert.Equal(t, fallback, bad.Or(fallback))

	good := Decode[QuestionsPayload](`{"perguntasDinamicas":["Qual o prazo?"]}`)
	assert.Equal(t, []string{"Qual o prazo?"}, good.Or(fallback).PerguntasDinamicas)
}
