package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"learnpilot-rag/internal/ai"
	"learnpilot-rag/internal/app"
	"learnpilot-rag/internal/transport/http/response"
)

type fakeAnswerer struct {
	result   *app.AnswerResult
	err      error
	gotInput app.AnswerInput
	calls    int
}

func (f *fakeAnswerer) Answer(_ context.Context, input app.AnswerInput) (*app.AnswerResult, error) {
	f.calls++
	f.gotInput = input
	return f.result, f.err
}

type fakeChatter struct {
	result   *app.ChatResult
	err      error
	gotInput app.ChatInput
	calls    int
}

func (f *fakeChatter) Send(_ context.Context, input app.ChatInput) (*app.ChatResult, error) {
	f.calls++
	f.gotInput = input
	return f.result, f.err
}

func chatRouter(query Answerer, chat DirectChatter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewChatHandler(query, chat)
	r.POST("/api/v1/chat", h.Send)
	return r
}

func postChat(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestChatGroundedPath(t *testing.T) {
	query := &fakeAnswerer{result: &app.AnswerResult{Answer: "42", Grounded: true}}
	chat := &fakeChatter{}
	router := chatRouter(query, chat)

	rec := postChat(t, router, `{"userId":"u1","message":"what is the answer?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if query.calls != 1 || chat.calls != 0 {
		t.Fatalf("query calls = %d, chat calls = %d", query.calls, chat.calls)
	}
	if query.gotInput.UserID != "u1" || query.gotInput.Question != "what is the answer?" {
		t.Fatalf("answer input = %+v", query.gotInput)
	}
}

func TestChatDirectModeByMessages(t *testing.T) {
	chat := &fakeChatter{result: &app.ChatResult{Reply: "hi", Provider: "groq"}}
	query := &fakeAnswerer{}
	router := chatRouter(query, chat)

	rec := postChat(t, router, `{"messages":[{"role":"user","content":"hello"}],"provider":"groq"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if chat.calls != 1 || query.calls != 0 {
		t.Fatalf("chat calls = %d, query calls = %d", chat.calls, query.calls)
	}
	if chat.gotInput.Provider != "groq" || len(chat.gotInput.Messages) != 1 {
		t.Fatalf("chat input = %+v", chat.gotInput)
	}
}

func TestChatDirectModeBySingleMessage(t *testing.T) {
	chat := &fakeChatter{result: &app.ChatResult{Reply: "hi"}}
	router := chatRouter(&fakeAnswerer{}, chat)

	rec := postChat(t, router, `{"mode":"direct","message":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(chat.gotInput.Messages) != 1 || chat.gotInput.Messages[0].Content != "hello" {
		t.Fatalf("chat input = %+v", chat.gotInput)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"invalid input", app.ErrInvalidInput, http.StatusBadRequest, response.ReasonInvalidRequest},
		{"unknown provider", ai.ErrUnknownProvider, http.StatusBadRequest, response.ReasonInvalidRequest},
		{"pinned unavailable", ai.ErrProviderPinned, http.StatusServiceUnavailable, response.ReasonBackendUnavailable},
		{
			"all providers exhausted",
			&ai.ExhaustedError{Attempts: 3, LastErr: errors.New("boom")},
			http.StatusServiceUnavailable,
			response.ReasonProvidersExhausted,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := chatRouter(&fakeAnswerer{err: tt.err}, &fakeChatter{})

			rec := postChat(t, router, `{"userId":"u1","message":"q"}`)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeEnvelope(t, rec.Body).Reason; got != tt.wantReason {
				t.Fatalf("reason = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

func TestChatBadPayload(t *testing.T) {
	router := chatRouter(&fakeAnswerer{}, &fakeChatter{})

	rec := postChat(t, router, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
