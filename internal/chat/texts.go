package chat

import (
	"fmt"
	"strings"
)

// WelcomeMessage greets a recipient on first contact.
func WelcomeMessage(name string) string {
	greeting := "Hello!"
	if name = strings.TrimSpace(name); name != "" {
		greeting = fmt.Sprintf("Hello %s!", name)
	}
	return greeting + ` 👋

I'm your AI Daily Digest assistant! I help you stay up-to-date with the latest AI developments by:

🤖 **Daily Digests**: I send curated summaries of the best AI content from Reddit communities
💬 **AI Chat**: Ask me anything about AI, machine learning, or technology trends
📊 **Insights**: Get explanations of complex AI concepts and developments

**What would you like to know about AI today?**

Just send me a message and let's chat about AI! 🚀`
}

// HelpMessage explains the available commands and chat features.
func HelpMessage() string {
	return `🤖 **AI Daily Digest Bot Help**

**Commands:**
• /start - Get started and see the welcome message
• /help - Show this help message
• /stats - View processing statistics

**Chat Features:**
💬 Ask me anything about AI! I ground my answers in recent posts from AI communities.

**Daily Digests:**
📅 I automatically send curated daily summaries of the best AI content from Reddit communities like r/artificial, r/OpenAI, r/ClaudeAI, and more.

**Examples of what you can ask:**
• "What's new in large language models?"
• "What are the latest AI safety developments?"
• "Tell me about recent AI research breakthroughs"

Just send me any message to start chatting! 🚀`
}
