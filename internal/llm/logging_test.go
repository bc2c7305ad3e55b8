package llm

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rebootlabs/mastery/internal/logger"
	"github.com/rebootlabs/mastery/internal/store"
	"github.com/rebootlabs/mastery/internal/store/storetest"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestLoggingProvider_RecordsEvents(t *testing.T) {
	st := storetest.Open(t)
	log, logs := observedLogger()

	mock := NewMockProvider(
		MockText("정리: 함수는 기계입니다."),
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, ProviderMock, st.EventRepo(), log)

	ctx := WithPurpose(context.Background(), "weakzone-supplement")
	req := Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "함수"}}}
	if _, err := p.Generate(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := p.Generate(ctx, req); err == nil {
		t.Fatal("second call: expected error")
	}

	events, err := st.EventRepo().QueryLLMRequests(context.Background(), store.QueryOpts{})
	if err != nil {
		t.Fatalf("QueryLLMRequests: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// Newest first.
	failed, ok := events[0], events[1]
	if failed.Success || failed.ErrorMessage == "" {
		t.Fatalf("expected failed event with message, got %+v", failed)
	}
	if !ok.Success || ok.Purpose != "weakzone-supplement" || ok.Provider != ProviderMock {
		t.Fatalf("unexpected success event %+v", ok)
	}
	if ok.ResponseBody != `"정리: 함수는 기계입니다."` {
		t.Fatalf("expected response body recorded, got %q", ok.ResponseBody)
	}
	if got := logs.FilterMessage("llm request").Len(); got != 2 {
		t.Fatalf("expected 2 debug lines, got %d", got)
	}
}

type failingEvents struct{ store.EventRepo }

func (failingEvents) AppendLLMRequest(context.Context, store.LLMRequestEventData) error {
	return errors.New("disk full")
}

func TestLoggingProvider_AuditFailureDoesNotFailRequest(t *testing.T) {
	log, logs := observedLogger()
	p := WithLogging(NewMockProvider(MockText("ok")), ProviderMock, failingEvents{}, log)

	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	warns := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warns) != 1 || warns[0].Message != "failed to record llm request event" {
		t.Fatalf("expected one audit warning, got %+v", warns)
	}
}

func TestSerializeRequest(t *testing.T) {
	got := serializeRequest(Request{
		System:   "sys",
		Messages: []Message{{Role: RoleUser, Content: "hello"}},
		Schema:   &Schema{Name: "s", Definition: map[string]any{"type": "string"}},
	})
	want := "[system]\nsys\n\n[user]\nhello\n\n[schema: s]\n{\"type\":\"string\"}\n"
	if got != want {
		t.Fatalf("serializeRequest =\n%q\nwant\n%q", got, want)
	}
}
