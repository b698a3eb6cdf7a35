package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fourmind/internal/session"
)

type fakeClient struct {
	content  string
	err      error
	messages []Message
}

func (f *fakeClient) Generate(_ context.Context, messages []Message) (Response, error) {
	f.messages = messages
	if f.err != nil {
		return Response{}, f.err
	}
	return Response{Content: f.content, Model: "fake"}, nil
}

func newLLMTestSession() *session.Session {
	s := session.New(21, "carol", []string{"alice", "bob"}, "en")
	s.AddMessage("alice", "what do you all think", time.Now())
	s.AddMessage("bob", "not sure yet", time.Now())
	return s
}

func TestStripFences(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                        `{"a":1}`,
		"```json\n{\"a\":1}\n```":        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"  \n```json\n{\"a\":1}\n```\n ": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripFences(in))
	}
}

func TestFourSidesParsesAnalysis(t *testing.T) {
	client := &fakeClient{content: `{
		"receivers": ["bob"],
		"factual_information": "asks for opinions",
		"self_revelation": "curious",
		"relationship": "peer",
		"appeal": "share your view",
		"referring_message_ids": [0]
	}`}
	fs := NewFourSides(client, zerolog.Nop())
	sess := newLLMTestSession()
	msg, _ := sess.Message(1)

	a, err := fs.Analyze(context.Background(), sess, msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, a.Receivers)
	assert.Equal(t, "asks for opinions", a.FactualInformation)
	assert.Equal(t, "share your view", a.Appeal)
	assert.Equal(t, []int{0}, a.LinkedMessages)
}

func TestFourSidesReceiversFallBackToLinkedSenders(t *testing.T) {
	client := &fakeClient{content: `{
		"receivers": [],
		"appeal": "respond",
		"referring_message_ids": [0]
	}`}
	fs := NewFourSides(client, zerolog.Nop())
	sess := newLLMTestSession()
	msg, _ := sess.Message(1)

	a, err := fs.Analyze(context.Background(), sess, msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, a.Receivers)
}

func TestFourSidesMalformedOutput(t *testing.T) {
	client := &fakeClient{content: "sorry, I cannot do that"}
	fs := NewFourSides(client, zerolog.Nop())
	sess := newLLMTestSession()
	msg, _ := sess.Message(0)

	_, err := fs.Analyze(context.Background(), sess, msg)
	assert.Error(t, err)
}

func TestFourSidesSeesTranscriptOnlyUpToMessage(t *testing.T) {
	client := &fakeClient{content: `{"receivers":["bob"]}`}
	fs := NewFourSides(client, zerolog.Nop())
	sess := newLLMTestSession()
	sess.AddMessage("alice", "a later remark", time.Now())
	msg, _ := sess.Message(1)

	_, err := fs.Analyze(context.Background(), sess, msg)
	require.NoError(t, err)
	require.Len(t, client.messages, 2)
	assert.NotContains(t, client.messages[1].Content, "a later remark")
}

func TestLookaheadReturnsFirstTurn(t *testing.T) {
	client := &fakeClient{content: "```json\n" + `{
		"messages": [
			{"sender": "carol", "message": "sounds interesting"},
			{"sender": "alice", "message": "right?"}
		]
	}` + "\n```"}
	la := NewLookahead(client, zerolog.Nop())

	cand, err := la.Simulate(context.Background(), newLLMTestSession(), false)
	require.NoError(t, err)
	require.NotNil(t, cand)
	assert.Equal(t, "carol", cand.Sender)
	assert.Equal(t, "sounds interesting", cand.Text)
}

func TestLookaheadEmptySimulation(t *testing.T) {
	client := &fakeClient{content: `{"messages": []}`}
	la := NewLookahead(client, zerolog.Nop())

	cand, err := la.Simulate(context.Background(), newLLMTestSession(), false)
	require.NoError(t, err)
	assert.Nil(t, cand)
}

func TestLookaheadPropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("rate limited")}
	la := NewLookahead(client, zerolog.Nop())

	_, err := la.Simulate(context.Background(), newLLMTestSession(), false)
	assert.Error(t, err)
}

func TestFactoryRejectsUnknownProvider(t *testing.T) {
	f := &Factory{}
	_, err := f.CreateClient("mystery", "model", 0.5)
	assert.Error(t, err)
}

func TestFactoryCreatesOpenAIClient(t *testing.T) {
	f := &Factory{OpenaiAPIKey: "key"}
	c, err := f.CreateClient("OpenAI", "gpt-4o-mini", 0.5)
	require.NoError(t, err)
	assert.NotNil(t, c)
}
