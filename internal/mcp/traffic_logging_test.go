package mcp

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestFormatPayload(t *testing.T) {
	require.Equal(t, "<nil>", formatPayload(nil))
	require.Equal(t, `{"a":1}`, formatPayload(map[string]int{"a": 1}))

	long := formatPayload(strings.Repeat("x", 3000))
	require.True(t, strings.HasSuffix(long, "... (3002 bytes)"), long[len(long)-32:])
	require.Len(t, long, maxLoggedPayload+len("... (3002 bytes)"))
}

func TestTrafficLogging_SkipsWhenNotDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	called := false
	handler := trafficLoggingMiddleware(logger, "inbound")(func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		called = true
		return nil, nil
	})
	_, err := handler(context.Background(), "tools/list", nil)
	require.NoError(t, err)
	require.True(t, called)
	require.Empty(t, buf.String())
}

func TestTrafficLogging_LogsRequestAndResponse(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := trafficLoggingMiddleware(logger, "inbound")(func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		return nil, nil
	})
	_, err := handler(context.Background(), "tools/list", nil)
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "stage=request")
	require.Contains(t, out, "stage=response")
	require.Contains(t, out, "method=tools/list")
}
