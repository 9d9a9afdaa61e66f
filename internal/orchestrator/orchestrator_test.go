package orchestrator

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"extprocbench/internal/plan"
	"extprocbench/internal/testutil"
)

func dial(t *testing.T, addr string) *grpc.ClientConn {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestRunProducesOneArtifactPerStage(t *testing.T) {
	addr, stop, err := testutil.StartTCP(&testutil.EchoServer{})
	require.NoError(t, err)
	defer stop()

	conn := dial(t, addr)
	dir := t.TempDir()
	logger := log.New(io.Discard)

	stages, err := plan.Build(plan.Config{Start: 5, End: 10, Step: 5, StepDuration: 50 * time.Millisecond})
	require.NoError(t, err)

	err = Run(context.Background(), logger, conn, Options{
		Stages:       stages,
		ResultDir:    dir,
		PacingKind:   "deterministic",
		OnStageError: Abort,
		GraceCap:     time.Second,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(stages))
}

func TestRunReturnsNilWhenCancelledBeforeFirstStage(t *testing.T) {
	addr, stop, err := testutil.StartTCP(&testutil.EchoServer{})
	require.NoError(t, err)
	defer stop()

	conn := dial(t, addr)
	dir := t.TempDir()
	logger := log.New(io.Discard)

	stages, err := plan.Build(plan.Config{Start: 5, End: 15, Step: 5, StepDuration: 20 * time.Millisecond})
	require.NoError(t, err)
	require.Greater(t, len(stages), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = Run(ctx, logger, conn, Options{
		Stages:       stages,
		ResultDir:    dir,
		PacingKind:   "deterministic",
		OnStageError: Abort,
		GraceCap:     time.Second,
	})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestRunRejectsMissingResultDir(t *testing.T) {
	addr, stop, err := testutil.StartTCP(&testutil.EchoServer{})
	require.NoError(t, err)
	defer stop()

	conn := dial(t, addr)
	logger := log.New(io.Discard)

	stages, err := plan.Build(plan.Config{Start: 1, End: 1, StepDuration: 10 * time.Millisecond})
	require.NoError(t, err)

	err = Run(context.Background(), logger, conn, Options{
		Stages:    stages,
		ResultDir: "/nonexistent/path/for/test",
		GraceCap:  time.Second,
	})
	assert.Error(t, err)
}
