package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goa.design/llmcore/model"
	"goa.design/llmcore/telemetry"
)

func TestOtelService_StartCallRecordsUsageAndFinishReason(t *testing.T) {
	svc := telemetry.NewOtelService(nil, nil, nil)
	ctx, done := svc.StartCall(context.Background(), "gpt-5", model.Params{
		Messages: []model.Message{{Role: model.RoleUser, Content: model.NewTextContent("hi")}},
	})
	require.NotNil(t, ctx)

	content := "hello"
	done(model.Response{
		Content: &content,
		Metadata: model.Metadata{
			FinishReason: model.FinishStop,
			Model:        "gpt-5",
			Usage:        &model.Usage{Tokens: model.TokenCounts{Total: 42}},
		},
	}, nil)
	// With noop backends this just needs to not panic; the redaction/error
	// tests below likewise only check that those branches do not panic.
}

func TestOtelService_StartCallRecordsError(t *testing.T) {
	svc := telemetry.NewOtelService(nil, nil, nil)
	_, done := svc.StartCall(context.Background(), "gpt-5", model.Params{})
	assert.NotPanics(t, func() { done(model.Response{}, errors.New("boom")) })
}

func TestOtelService_StartToolRecordsSuccessAndFailure(t *testing.T) {
	svc := telemetry.NewOtelService(nil, nil, nil)
	_, doneOK := svc.StartTool(context.Background(), "get_time", "call_1", map[string]any{"tz": "UTC"})
	assert.NotPanics(t, func() { doneOK(nil) })

	_, doneErr := svc.StartTool(context.Background(), "get_time", "call_2", nil)
	assert.NotPanics(t, func() { doneErr(errors.New("tool failed")) })
}

func TestRedactionPolicy_TruncatesAndRedacts(t *testing.T) {
	svc := telemetry.NewOtelService(nil, nil, nil)
	svc.Redact = telemetry.RedactionPolicy{RedactResponses: true, MaxContentLength: 4}
	_, done := svc.StartCall(context.Background(), "gpt-5", model.Params{
		Messages: []model.Message{{Role: model.RoleUser, Content: model.NewTextContent("a prompt longer than four bytes")}},
	})
	content := "sensitive output"
	assert.NotPanics(t, func() {
		done(model.Response{Content: &content, Metadata: model.Metadata{FinishReason: model.FinishStop}}, nil)
	})
}
