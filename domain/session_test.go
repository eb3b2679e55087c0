package domain

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationSession_AppendAndReset(t *testing.T) {
	s := NewConversationSession("abc")
	s.Append(ChatMessage{Role: "user", Content: "q"}, ChatMessage{Role: "assistant", Content: "a"})
	assert.Equal(t, 2, s.Len())

	msgs := s.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "q", s.Messages()[0].Content)

	before := s.LastUpdated()
	s.Reset()
	assert.Zero(t, s.Len())
	assert.False(t, s.LastUpdated().Before(before))
}

func TestConversationSession_ConcurrentAppend(t *testing.T) {
	s := NewConversationSession("abc")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Append(ChatMessage{Role: "user", Content: "q"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
