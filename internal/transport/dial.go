// Package transport builds the single gRPC channel the orchestrator reuses
// across every stage instead of dialing a fresh connection per stream.
package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"extprocbench/internal/apperr"
)

// Dial opens a gRPC channel to target, selecting transport credentials and
// dial semantics from the URI scheme. It blocks until the channel reaches
// connectivity.Ready or timeout elapses, preserving the blocking-dial
// contract grpc.NewClient itself no longer provides.
func Dial(ctx context.Context, target string, timeout time.Duration) (*grpc.ClientConn, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidTarget, err)
	}

	var dialTarget string
	var opts []grpc.DialOption

	switch u.Scheme {
	case "grpc", "http":
		dialTarget = u.Host
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	case "https":
		dialTarget = u.Host
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	case "unix":
		dialTarget = "unix:" + u.Path
		opts = append(opts,
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithContextDialer(func(ctx context.Context, addr string) (net.Conn, error) {
				return net.DialTimeout("unix", u.Path, timeout)
			}),
		)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", apperr.ErrInvalidTarget, u.Scheme)
	}

	conn, err := grpc.NewClient(dialTarget, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrConnectFailed, err)
	}

	if err := waitReady(ctx, conn, timeout); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// waitReady drives the channel's lazy connection attempt and blocks until
// it reaches connectivity.Ready, since grpc.NewClient (the replacement for
// the deprecated grpc.DialContext) returns immediately without connecting.
func waitReady(ctx context.Context, conn *grpc.ClientConn, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn.Connect()
	for {
		state := conn.GetState()
		if state == connectivity.Ready {
			return nil
		}
		if !conn.WaitForStateChange(ctx, state) {
			return fmt.Errorf("%w: did not reach ready state within %s (last state %s)", apperr.ErrConnectFailed, timeout, state)
		}
	}
}
