package rerank

const relevanceSystemPrompt = `You judge whether a passage is relevant to a search query.

Reply with a single character: 1 if the passage helps answer the query,
0 if it does not. Output nothing else.`
