package logctx

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/eunmann/postcache/pkg/logging"
)

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	defer logging.Init(false, false)

	var buf bytes.Buffer
	logging.SetLogger(zerolog.New(&buf).With().Str("source", "global").Logger())

	//nolint:staticcheck // nil context is part of the contract
	for _, ctx := range []context.Context{nil, context.Background()} {
		buf.Reset()
		logger := FromContext(ctx)
		logger.Info().Msg("test")

		if !strings.Contains(buf.String(), `"source":"global"`) {
			t.Errorf("expected global logger output, got: %s", buf.String())
		}
	}
}

func TestWithLogger_AndFromContext(t *testing.T) {
	var buf bytes.Buffer
	customLogger := zerolog.New(&buf).With().Str("custom", "field").Logger()

	ctx := WithLogger(context.Background(), customLogger)
	logger := FromContext(ctx)
	logger.Info().Msg("test")

	if !strings.Contains(buf.String(), `"custom":"field"`) {
		t.Errorf("expected custom field in output, got: %s", buf.String())
	}
}

func TestWithLogger_NilContext(t *testing.T) {
	var buf bytes.Buffer

	//nolint:staticcheck // nil context is part of the contract
	ctx := WithLogger(nil, zerolog.New(&buf))
	if ctx == nil {
		t.Fatal("expected non-nil context")
	}

	logger := FromContext(ctx)
	logger.Info().Msg("test")
	if buf.Len() == 0 {
		t.Error("expected logger to produce output")
	}
}

func TestChainedFields(t *testing.T) {
	var buf bytes.Buffer

	ctx := WithLogger(context.Background(), zerolog.New(&buf))
	ctx = WithStr(ctx, "flush_id", "f-1")
	ctx = WithInt(ctx, "account", 7)

	logger := FromContext(ctx)
	logger.Info().Msg("test")

	out := buf.String()
	if !strings.Contains(out, `"flush_id":"f-1"`) {
		t.Errorf("expected flush_id field, got: %s", out)
	}
	if !strings.Contains(out, `"account":7`) {
		t.Errorf("expected account field, got: %s", out)
	}
}
