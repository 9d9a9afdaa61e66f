// Package testutil provides an in-process ext_proc echo server standing in
// for a live Envoy external-processing endpoint in tests.
package testutil

import (
	"io"
	"net"

	extprocv3 "github.com/envoyproxy/go-control-plane/envoy/service/ext_proc/v3"
	"google.golang.org/grpc"
)

// EchoServer implements extprocv3.ExternalProcessorServer by replying to
// each phase with the matching empty response, the minimal legal ext_proc
// exchange a compliant server can get away with.
type EchoServer struct {
	extprocv3.UnimplementedExternalProcessorServer

	// Delay, if set, is invoked once per received request before replying,
	// letting tests model a slow or loaded backend.
	Delay func()
}

// Process implements the bidirectional streaming RPC handler.
func (s *EchoServer) Process(stream extprocv3.ExternalProcessor_ProcessServer) error {
	for {
		req, err := stream.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if s.Delay != nil {
			s.Delay()
		}
		resp, err := echo(req)
		if err != nil {
			return err
		}
		if err := stream.Send(resp); err != nil {
			return err
		}
	}
}

func echo(req *extprocv3.ProcessingRequest) (*extprocv3.ProcessingResponse, error) {
	switch req.GetRequest().(type) {
	case *extprocv3.ProcessingRequest_RequestHeaders:
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_RequestHeaders{
				RequestHeaders: &extprocv3.HeadersResponse{},
			},
		}, nil
	case *extprocv3.ProcessingRequest_RequestBody:
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_RequestBody{
				RequestBody: &extprocv3.BodyResponse{},
			},
		}, nil
	case *extprocv3.ProcessingRequest_ResponseHeaders:
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_ResponseHeaders{
				ResponseHeaders: &extprocv3.HeadersResponse{},
			},
		}, nil
	case *extprocv3.ProcessingRequest_ResponseBody:
		return &extprocv3.ProcessingResponse{
			Response: &extprocv3.ProcessingResponse_ResponseBody{
				ResponseBody: &extprocv3.BodyResponse{},
			},
		}, nil
	default:
		return nil, io.ErrUnexpectedEOF
	}
}

// StartTCP starts an EchoServer on an ephemeral 127.0.0.1 port and returns
// its address plus a stop function.
func StartTCP(srv *EchoServer) (addr string, stop func(), err error) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}
	return startOn(lis, srv)
}

// StartUnix starts an EchoServer on a Unix-domain socket at path.
func StartUnix(path string, srv *EchoServer) (addr string, stop func(), err error) {
	lis, err := net.Listen("unix", path)
	if err != nil {
		return "", nil, err
	}
	return startOn(lis, srv)
}

func startOn(lis net.Listener, srv *EchoServer) (string, func(), error) {
	s := grpc.NewServer()
	extprocv3.RegisterExternalProcessorServer(s, srv)
	go s.Serve(lis)
	return lis.Addr().String(), func() { s.Stop(); lis.Close() }, nil
}
