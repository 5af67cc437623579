package llm

// EnrichmentPrompt instructs the model to produce a digest-ready summary,
// a single category label, and search keywords for one item.
const EnrichmentPrompt = `You summarize community posts for a daily digest.
Given a post (title, body, and optionally the text of its linked page), respond with JSON only:
{"summary": "...", "category": "...", "keywords": ["...", "..."]}

Rules:
- "summary": 2-4 sentences, plain language, no markdown, capture what the post is about and why it matters.
- "category": exactly one of news, discussion, tutorial, question, tool, research, showcase, other.
- "keywords": up to 10 short lowercase search terms covering the post's topics.
Respond with the JSON object and nothing else.`

// QueryAnalysisPrompt instructs the model to turn a free-form question into
// structured search parameters.
const QueryAnalysisPrompt = `You translate a user's question about recent community posts into search parameters.
Respond with JSON only:
{"intent": "...", "keywords": ["...", "..."], "topic_areas": ["..."], "timeframe": "..."}

Rules:
- "intent": one of general_question, specific_topic, recent_news, comparison, tutorial, explanation, other.
- "keywords": 3 to 5 important search terms from the question, lowercase, no stop words.
- "topic_areas": zero or more short phrases naming the subject areas the question covers.
- "timeframe": one of recent, week, month, any.
Respond with the JSON object and nothing else.`

// ChatSystemPrompt frames the assistant role for conversational answers.
const ChatSystemPrompt = `You are a helpful assistant that answers questions about recent posts from AI community forums.
Ground every answer in the post context provided in the conversation. When the context does not cover the question, say so plainly instead of guessing.
Keep answers short and conversational. Do not use markdown headings.`
