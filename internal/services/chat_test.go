package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"healthyaar-backend/internal/models"
)

func newChatService(env *testEnv, gen Generator) *ChatService {
	gw := env.gateway
	if gen != nil {
		gw = NewGateway(gen, env.events, zap.NewNop(), 0, 4, 5*time.Second)
	}
	return NewChatService(env.transcripts, env.profiles, env.prompts, gw, env.gate, zap.NewNop())
}

func assistantMessages(msgs []models.ChatMessage) []string {
	var out []string
	for _, m := range msgs[1:] {
		if m.Role == models.RoleAssistant {
			out = append(out, m.Text)
		}
	}
	return out
}

func TestChatSend_SuccessAppendsExactlyOneReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"X"}]}}]}`))
	}))
	defer srv.Close()

	env := newTestEnv()
	svc := newChatService(env, NewRESTGenerator(srv.URL, "m", "k", 5*time.Second))
	userID := uuid.New()

	resp, err := svc.Send(context.Background(), userID, "hello")
	require.NoError(t, err)

	assert.Equal(t, "X", resp.Reply)
	assert.False(t, resp.Fallback)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, models.SeedGreeting, resp.Messages[0].Text)
	assert.Equal(t, models.ChatMessage{Role: models.RoleUser, Text: "hello"}, resp.Messages[1])
	assert.Equal(t, []string{"X"}, assistantMessages(resp.Messages))
}

func TestChatSend_Non2xxAppendsExactlyOneFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	env := newTestEnv()
	svc := newChatService(env, NewRESTGenerator(srv.URL, "m", "k", 5*time.Second))
	userID := uuid.New()

	resp, err := svc.Send(context.Background(), userID, "hello")
	require.NoError(t, err)

	assert.True(t, resp.Fallback)
	assert.Equal(t, []string{ChatFallback}, assistantMessages(resp.Messages))

	stored, err := svc.Transcript(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, resp.Messages, stored)
}

func TestChatSend_OutboundTurnsExcludeGreeting(t *testing.T) {
	env := newTestEnv()
	env.gen.result = Ok("reply")
	svc := newChatService(env, nil)
	userID := uuid.New()

	_, err := svc.Send(context.Background(), userID, "A")
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), userID, "B")
	require.NoError(t, err)

	calls := env.gen.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, []Turn{
		{Role: RoleUser, Text: "A"},
		{Role: RoleModel, Text: "reply"},
		{Role: RoleUser, Text: "B"},
	}, calls[1].Turns)
	assert.Contains(t, calls[1].SystemInstruction, "Health Yaar AI")
}

func TestChatSend_DoubleSendMakesOneOutboundCall(t *testing.T) {
	env := newTestEnv()
	env.gen.started = make(chan struct{}, 1)
	env.gen.block = make(chan struct{})
	svc := newChatService(env, nil)
	userID := uuid.New()

	var firstErr atomic.Value
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := svc.Send(context.Background(), userID, "first"); err != nil {
			firstErr.Store(err)
		}
	}()

	<-env.gen.started
	_, err := svc.Send(context.Background(), userID, "second")
	assert.True(t, errors.Is(err, ErrRequestInFlight))

	close(env.gen.block)
	<-done

	assert.Nil(t, firstErr.Load())
	assert.Len(t, env.gen.Calls(), 1)

	msgs, err := svc.Transcript(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, msgs, 3, "the ignored send must not touch the transcript")
	assert.Equal(t, "first", msgs[1].Text)
}

func TestChatSend_StateTransitions(t *testing.T) {
	env := newTestEnv()
	svc := newChatService(env, nil)

	_, err := svc.Send(context.Background(), uuid.New(), "hi")
	require.NoError(t, err)

	assert.Equal(t,
		[]string{models.StateSending, models.StateSuccess, models.StateIdle},
		featureStates(env.kv, models.FeatureChat),
	)
}

func TestChatSend_UsesProfileContext(t *testing.T) {
	env := newTestEnv()
	svc := newChatService(env, nil)
	userID := uuid.New()
	env.store.docs[userID] = models.Profile{ChronicDiseases: models.T("asthma")}

	_, err := svc.Send(context.Background(), userID, "can I run?")
	require.NoError(t, err)

	calls := env.gen.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SystemInstruction, "Chronic Conditions: asthma")
}

func TestChatSend_RejectsBlankMessage(t *testing.T) {
	env := newTestEnv()
	svc := newChatService(env, nil)

	_, err := svc.Send(context.Background(), uuid.New(), "   ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, env.gen.Calls())
}

func TestChatReset(t *testing.T) {
	env := newTestEnv()
	svc := newChatService(env, nil)
	userID := uuid.New()

	_, err := svc.Send(context.Background(), userID, "hi")
	require.NoError(t, err)

	msgs, err := svc.Reset(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{{Role: models.RoleAssistant, Text: models.SeedGreeting}}, msgs)
}

func TestChatReset_RefusedWhileSendInFlight(t *testing.T) {
	env := newTestEnv()
	env.gen.started = make(chan struct{}, 1)
	env.gen.block = make(chan struct{})
	svc := newChatService(env, nil)
	userID := uuid.New()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Send(context.Background(), userID, "first")
	}()

	<-env.gen.started
	_, err := svc.Reset(context.Background(), userID)
	assert.ErrorIs(t, err, ErrRequestInFlight)

	close(env.gen.block)
	<-done

	msgs, err := svc.Transcript(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestChatSend_ReplyDroppedWhenTranscriptClearedMidFlight(t *testing.T) {
	env := newTestEnv()
	env.gen.started = make(chan struct{}, 1)
	env.gen.block = make(chan struct{})
	svc := newChatService(env, nil)
	userID := uuid.New()

	var resp *models.ChatResponse
	done := make(chan struct{})
	go func() {
		defer close(done)
		resp, _ = svc.Send(context.Background(), userID, "hello")
	}()

	<-env.gen.started
	require.NoError(t, env.transcripts.ResetIdentity(context.Background(), userID))
	close(env.gen.block)
	<-done

	require.NotNil(t, resp)
	assert.Equal(t, "ok", resp.Reply)

	msgs, err := svc.Transcript(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, []models.ChatMessage{{Role: models.RoleAssistant, Text: models.SeedGreeting}}, msgs)
	assert.Equal(t, msgs, resp.Messages)
}
