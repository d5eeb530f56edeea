package synthesize

const thoughtSystemPrompt = `You reason about whether and how a passage answers a question.

Given a question and one passage, write a single short reasoning step
stating what the passage contributes to the answer. If the passage
contributes nothing, say so. Output only the reasoning step.`

const answerSystemPrompt = `You answer questions using provided passages and reasoning steps.

Compose a direct, complete answer to the question. Ground every claim in
the passages; if they are insufficient, say what is missing instead of
guessing. Output only the answer.`
