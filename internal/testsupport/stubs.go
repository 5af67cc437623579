package testsupport

import (
	"context"
	"errors"
	"sync"

	"skimmer/internal/services/llm"
)

// StubCompleter returns queued responses for LLM calls, in order. When the
// queue empties it returns Err, or a generic error when Err is nil.
type StubCompleter struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	Calls     int
}

// Push appends a response to the queue.
func (s *StubCompleter) Push(response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, response)
}

func (s *StubCompleter) next() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	if len(s.Responses) == 0 {
		if s.Err != nil {
			return "", s.Err
		}
		return "", errors.New("stub completer: no responses queued")
	}
	response := s.Responses[0]
	s.Responses = s.Responses[1:]
	return response, nil
}

// CompleteJSON pops the next queued response.
func (s *StubCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.next()
}

// CompleteText pops the next queued response.
func (s *StubCompleter) CompleteText(ctx context.Context, messages []llm.Message) (string, error) {
	return s.next()
}

// StubFetcher returns a fixed page text or error for every fetch.
type StubFetcher struct {
	Text  string
	Err   error
	Calls int
	URLs  []string
}

// Fetch records the URL and returns the configured text or error.
func (s *StubFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	s.Calls++
	s.URLs = append(s.URLs, rawURL)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// SentMessage records one delivery attempt seen by a StubSender.
type SentMessage struct {
	ChatID int64
	Text   string
}

// StubSender records sends and fails specific recipients with scripted errors.
type StubSender struct {
	mu       sync.Mutex
	Messages []SentMessage
	attempts map[int64]int
	// Failures maps recipient id to the error every send to it returns.
	Failures map[int64]error
}

// SendMessage records the message and returns any scripted failure.
func (s *StubSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attempts == nil {
		s.attempts = make(map[int64]int)
	}
	s.attempts[chatID]++
	if err, ok := s.Failures[chatID]; ok {
		return err
	}
	s.Messages = append(s.Messages, SentMessage{ChatID: chatID, Text: text})
	return nil
}

// Attempts returns how many sends were attempted to the recipient, including
// failed ones.
func (s *StubSender) Attempts(chatID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[chatID]
}

// Sent returns a copy of the recorded messages.
func (s *StubSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentMessage, len(s.Messages))
	copy(out, s.Messages)
	return out
}
