package chat_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/tablecast/pkg/chat"
	"github.com/aretw0/tablecast/pkg/domain"
	"github.com/aretw0/tablecast/pkg/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	Kind     string
	Channel  string
	Text     string
	Filename string
	Image    []byte
}

// fakeMessenger records every delivery in order.
type fakeMessenger struct {
	mu      sync.Mutex
	log     []sent
	nextID  int
	sendErr error
}

func (m *fakeMessenger) SendText(_ context.Context, channelID, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.nextID++
	m.log = append(m.log, sent{Kind: "text", Channel: channelID, Text: text})
	return fmt.Sprintf("m%d", m.nextID), nil
}

func (m *fakeMessenger) SendImage(_ context.Context, channelID, filename string, image []byte, caption string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, sent{Kind: "image", Channel: channelID, Text: caption, Filename: filename, Image: image})
	return nil
}

func (m *fakeMessenger) Delete(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = append(m.log, sent{Kind: "delete", Channel: channelID, Text: messageID})
	return nil
}

func (m *fakeMessenger) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.log))
	for i, s := range m.log {
		out[i] = s.Kind
	}
	return out
}

type fakeRenderer struct {
	payloads []string
	res      *domain.Success
	err      error
}

func (r *fakeRenderer) Render(_ context.Context, text string) (*domain.Success, error) {
	r.payloads = append(r.payloads, text)
	return r.res, r.err
}

func (r *fakeRenderer) Strategies() []string { return nil }

func TestHandle_IgnoresOtherMessages(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeRenderer{}
	h := chat.NewHandler(r, m)

	for _, text := range []string{"hello", "maketables A - Red", "please maketable"} {
		handled, err := h.Handle(context.Background(), chat.Message{ChannelID: "c", Text: text})
		require.NoError(t, err)
		assert.False(t, handled, text)
	}
	assert.Empty(t, m.kinds())
	assert.Empty(t, r.payloads)
}

func TestHandle_Success(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeRenderer{res: &domain.Success{Image: []byte("png"), Strategy: "http-api"}}
	h := chat.NewHandler(r, m)

	handled, err := h.Handle(context.Background(), chat.Message{
		ChannelID: "c1",
		Author:    "<@42>",
		Text:      "/MakeTable\r\nA - Red  \r\nAlice 1500\r\nBob 1400\r\n",
	})
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, []string{"A - Red\nAlice 1500\nBob 1400"}, r.payloads)
	assert.Equal(t, []string{"text", "image", "delete"}, m.kinds())
	assert.Equal(t, chat.DefaultProgressMessage, m.log[0].Text)
	assert.Equal(t, "tableau.png", m.log[1].Filename)
	assert.Equal(t, []byte("png"), m.log[1].Image)
	assert.Equal(t, "Table for <@42>", m.log[1].Text)
	assert.Equal(t, "m1", m.log[2].Text, "the progress message is deleted")
}

func TestHandle_FailureEchoesTable(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeRenderer{err: &domain.Failure{Attempts: []domain.AttemptOutcome{
		{Strategy: "http-api", Kind: domain.KindAllEndpointsFailed},
		{Strategy: "browser-gb2", Kind: domain.KindNavigationFailed},
	}}}
	h := chat.NewHandler(r, m)

	handled, err := h.Handle(context.Background(), chat.Message{ChannelID: "c1", Text: "maketable A - Red\nAlice 1500"})
	require.NoError(t, err)
	assert.True(t, handled)

	assert.Equal(t, []string{"text", "text", "delete"}, m.kinds())
	reply := m.log[1].Text
	assert.Contains(t, reply, "all_endpoints_failed")
	assert.Contains(t, reply, "navigation_failed")
	assert.Contains(t, reply, "```\nA - Red\nAlice 1500\n```")
}

func TestHandle_InvalidInputNeverRenders(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "maketable", "Please add your table"},
		{"blank", "maketable   \n \n", "Please add your table"},
		{"no team", "maketable Alice 1500", "team line"},
		{"no player", "maketable A - Red", "player lines"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMessenger{}
			r := &fakeRenderer{}
			h := chat.NewHandler(r, m)

			handled, err := h.Handle(context.Background(), chat.Message{ChannelID: "c", Text: tt.text})
			require.NoError(t, err)
			assert.True(t, handled)
			assert.Empty(t, r.payloads)
			require.Equal(t, []string{"text"}, m.kinds())
			assert.Contains(t, m.log[0].Text, tt.want)
			assert.Contains(t, m.log[0].Text, "Example:")
		})
	}
}

func TestHandle_CustomTriggerAndTexts(t *testing.T) {
	m := &fakeMessenger{}
	r := &fakeRenderer{res: &domain.Success{Image: []byte("png"), Strategy: "browser"}}
	h := chat.NewHandler(r, m,
		chat.WithNormalizer(normalize.New(normalize.WithTrigger("table"))),
		chat.WithConfig(chat.Config{Filename: "t.png", Caption: "done"}),
	)

	handled, err := h.Handle(context.Background(), chat.Message{ChannelID: "c", Author: "bob", Text: "table A - Red\nAlice 1"})
	require.NoError(t, err)
	assert.True(t, handled)
	require.Len(t, m.log, 3)
	assert.Equal(t, "t.png", m.log[1].Filename)
	assert.Equal(t, "done", m.log[1].Text)
}

func TestHandle_DeliveryErrorIsReturned(t *testing.T) {
	m := &fakeMessenger{sendErr: errors.New("forbidden")}
	r := &fakeRenderer{}
	h := chat.NewHandler(r, m)

	handled, err := h.Handle(context.Background(), chat.Message{ChannelID: "c", Text: "maketable"})
	assert.True(t, handled)
	assert.EqualError(t, err, "forbidden")
}
