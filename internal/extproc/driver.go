// Package extproc drives the fixed, minimal legal exchange against an
// Envoy external-processing gRPC service: request headers, request body,
// response headers, response body, each awaiting its matching response
// before the next is sent. The script is not user-configurable.
package extproc

import (
	"context"
	"fmt"
	"io"
	"time"

	core "github.com/envoyproxy/go-control-plane/envoy/config/core/v3"
	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"github.com/google/uuid"
	"google.golang.org/grpc"

	"extprocbench/internal/apperr"
)

// Sample is one stream's outcome: wall-clock latency from stream open to
// stream close, and whether the scripted exchange completed cleanly.
type Sample struct {
	Latency time.Duration
	Failed  bool
	Err     error
}

// Driver opens one bidirectional ext_proc stream per call and runs the
// fixed four-message script against it.
type Driver struct {
	client extprocv3.ExternalProcessorClient
	clock  func() time.Time
}

// New builds a Driver bound to conn. clock defaults to time.Now.
func New(conn *grpc.ClientConn, clock func() time.Time) *Driver {
	if clock == nil {
		clock = time.Now
	}
	return &Driver{client: extprocv3.NewExternalProcessorClient(conn), clock: clock}
}

// Run executes one full stream: request headers, request body, response
// headers, response body, then CloseSend and drain to EOF. It never blocks
// past ctx's deadline/cancellation.
func (d *Driver) Run(ctx context.Context) Sample {
	t0 := d.clock()

	stream, err := d.client.Process(ctx)
	if err != nil {
		return fail(t0, d.clock(), fmt.Errorf("%w: opening stream: %v", apperr.ErrStreamError, err))
	}

	requestID := uuid.New().String()

	steps := []struct {
		req   *extprocv3.ProcessingRequest
		match func(*extprocv3.ProcessingResponse) bool
	}{
		{requestHeaders(requestID), isRequestHeaders},
		{requestBody(), isRequestBody},
		{responseHeaders(), isResponseHeaders},
		{responseBody(), isResponseBody},
	}

	for _, step := range steps {
		if err := stream.Send(step.req); err != nil {
			return fail(t0, d.clock(), fmt.Errorf("%w: sending: %v", apperr.ErrStreamError, err))
		}
		resp, err := stream.Recv()
		if err != nil {
			return fail(t0, d.clock(), fmt.Errorf("%w: receiving: %v", apperr.ErrStreamError, err))
		}
		if !step.match(resp) {
			return fail(t0, d.clock(), fmt.Errorf("%w: unexpected response phase %T", apperr.ErrStreamError, resp.GetResponse()))
		}
	}

	if err := stream.CloseSend(); err != nil {
		return fail(t0, d.clock(), fmt.Errorf("%w: closing stream: %v", apperr.ErrStreamError, err))
	}
	for {
		if _, err := stream.Recv(); err != nil {
			if err == io.EOF {
				break
			}
			return fail(t0, d.clock(), fmt.Errorf("%w: draining: %v", apperr.ErrStreamError, err))
		}
	}

	t1 := d.clock()
	return Sample{Latency: t1.Sub(t0)}
}

func fail(t0, t1 time.Time, err error) Sample {
	return Sample{Latency: t1.Sub(t0), Failed: true, Err: err}
}

func requestHeaders(requestID string) *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_RequestHeaders{
			RequestHeaders: &extprocv3.HttpHeaders{
				Headers: &core.HeaderMap{
					Headers: []*core.HeaderValue{
						{Key: "x-request-id", RawValue: []byte(requestID)},
					},
				},
			},
		},
	}
}

func requestBody() *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_RequestBody{
			RequestBody: &extprocv3.HttpBody{
				Body:        []byte("{}"),
				EndOfStream: true,
			},
		},
	}
}

func responseHeaders() *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_ResponseHeaders{
			ResponseHeaders: &extprocv3.HttpHeaders{
				Headers: &core.HeaderMap{
					Headers: []*core.HeaderValue{
						{Key: "content-type", RawValue: []byte("application/json")},
					},
				},
			},
		},
	}
}

func responseBody() *extprocv3.ProcessingRequest {
	return &extprocv3.ProcessingRequest{
		Request: &extprocv3.ProcessingRequest_ResponseBody{
			ResponseBody: &extprocv3.HttpBody{
				Body:        []byte("{}"),
				EndOfStream: true,
			},
		},
	}
}

func isRequestHeaders(r *extprocv3.ProcessingResponse) bool {
	_, ok := r.GetResponse().(*extprocv3.ProcessingResponse_RequestHeaders)
	return ok
}

func isRequestBody(r *extprocv3.ProcessingResponse) bool {
	_, ok := r.GetResponse().(*extprocv3.ProcessingResponse_RequestBody)
	return ok
}

func isResponseHeaders(r *extprocv3.ProcessingResponse) bool {
	_, ok := r.GetResponse().(*extprocv3.ProcessingResponse_ResponseHeaders)
	return ok
}

func isResponseBody(r *extprocv3.ProcessingResponse) bool {
	_, ok := r.GetResponse().(*extprocv3.ProcessingResponse_ResponseBody)
	return ok
}
