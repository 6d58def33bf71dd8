package assistant

import (
	"fmt"
	"strings"

	"github.com/exa-engenharia/exa-chatbot/internal/catalog"
)

// OffTopicReply is the fixed refusal the model is told to use for questions
// unrelated to the company.
const OffTopicReply = "Desculpe, só posso responder perguntas relacionadas à Exa Engenharia e seus serviços. Se precisar de algo específico, estou aqui para ajudar!"

// OffTopicClosing replaces the reply once the visitor insists off topic.
const OffTopicClosing = "A conversa foi encerrada devido a insistências fora do tema."

func systemPrompt() string {
	return fmt.Sprintf(`Você é o assistente virtual da Exa Engenharia e Consultoria, empresa fundada em 2021 com foco em soluções de energia e sistemas de telecomunicações. Responda apenas sobre a empresa e seus serviços.

Diretrizes:
- Seja objetivo, direto e profissional.
- Serviços oferecidos: %s.
- Se perguntarem quais serviços a empresa oferece, responda de forma resumida. Se perguntarem sobre um serviço específico, explique-o com clareza.
- Para orçamentos ou pedidos de serviço, diga que você pode registrar a solicitação aqui mesmo ou que o cliente pode usar a aba "Contato" do site.
- Clientes atendidos incluem CHESF, Canadian e ENIND. Projetos de exemplo: atualização de teleproteção na SE Lagoa do Carro (CHESF), projeto básico de telecomunicações na SE Marangatu (ENIND/Canadian), implantação de CFTV e WLAN na SE Alagoinhas II (CHESF) e montagem de painéis de telecomunicações na SE Olindina. Para fotos e detalhes, indique a aba "Portfólio".
- Responda no idioma usado pelo usuário.
- Para perguntas fora do tema, responda exatamente: "%s"`,
		strings.Join(catalog.Names(), ", "), OffTopicReply)
}

const chatFormatInstruction = `Responda SEMPRE com um objeto JSON, sem texto fora dele, no formato:
{"resposta": "<sua resposta>", "perguntasDinamicas": ["<pergunta curta 1>", "<pergunta curta 2>", "<pergunta curta 3>"]}
"perguntasDinamicas" traz até 3 perguntas que o usuário poderia fazer em seguida sobre a Exa Engenharia.`

func serviceIdentificationPrompt(message string) string {
	return fmt.Sprintf(`Identifique qual serviço da lista abaixo o cliente deseja orçar.

Serviços:
- %s

Mensagem do cliente: %q

Responda apenas com JSON no formato {"servicoConfirmado": "<nome exato da lista>" ou null, "sugestoes": ["<nome exato da lista>", ...]}.
Use "servicoConfirmado" somente quando houver um único serviço claro. Se houver mais de um possível, deixe null e liste-os em "sugestoes". Se nenhum corresponder, use null e uma lista vazia.`,
		strings.Join(catalog.Names(), "\n- "), message)
}

const summaryInstruction = `Você resume conversas de atendimento para a equipe comercial da Exa Engenharia. Escreva um parágrafo curto em português com o interesse do cliente, o serviço desejado, dúvidas e o tom da conversa. Não invente dados que não aparecem na conversa.`

func questionsPrompt(topic string) string {
	return fmt.Sprintf(`Sugira até 3 perguntas curtas que um cliente poderia fazer à Exa Engenharia sobre: %q.
Responda apenas com JSON no formato {"perguntasDinamicas": ["...", "...", "..."]}.`, topic)
}
