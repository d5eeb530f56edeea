package agent

import "fmt"

const reactPromptTemplate = `You answer questions step by step, using tools when needed.

Available tools:
%s
Use exactly this format:

Thought: what you need to find out next
Action: the tool name, exactly as listed
Action Input: the input to the tool

After each action you receive an Observation with the tool's output.
Repeat Thought/Action/Action Input until you can answer, then finish with:

Final Answer: the complete answer to the question

Never invent tool output. If no tool applies, go straight to the
Final Answer.`

const replaySystemPrompt = `You answer a question using transcripts of how similar
questions were answered before. Follow the same approach the transcripts
show. If they do not cover the question, say what information is missing.
Output only the answer.`

// buildSystemPrompt renders the ReAct instructions with the tool list.
func buildSystemPrompt(tools *Registry) string {
	return fmt.Sprintf(reactPromptTemplate, tools.Describe())
}
