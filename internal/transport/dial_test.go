package transport

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"extprocbench/internal/apperr"
	"extprocbench/internal/testutil"
)

func TestDialTCPReachesReady(t *testing.T) {
	addr, stop, err := testutil.StartTCP(&testutil.EchoServer{})
	require.NoError(t, err)
	defer stop()

	conn, err := Dial(context.Background(), "grpc://"+addr, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
}

func TestDialUnixReachesReady(t *testing.T) {
	sockPath := filepath.Join(t.TempDir(), "extproc.sock")
	_, stop, err := testutil.StartUnix(sockPath, &testutil.EchoServer{})
	require.NoError(t, err)
	defer stop()

	conn, err := Dial(context.Background(), "unix://"+sockPath, 2*time.Second)
	require.NoError(t, err)
	defer conn.Close()
}

func TestDialRejectsUnsupportedScheme(t *testing.T) {
	_, err := Dial(context.Background(), "ftp://example.com", time.Second)
	assert.ErrorIs(t, err, apperr.ErrInvalidTarget)
}

func TestDialRejectsUnparsableTarget(t *testing.T) {
	_, err := Dial(context.Background(), "grpc://[::1", time.Second)
	assert.ErrorIs(t, err, apperr.ErrInvalidTarget)
}

func TestDialFailsWhenNothingListening(t *testing.T) {
	_, err := Dial(context.Background(), "grpc://127.0.0.1:1", 200*time.Millisecond)
	assert.ErrorIs(t, err, apperr.ErrConnectFailed)
}
