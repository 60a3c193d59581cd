package runner

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"
)

type fakeServer struct {
	served   chan struct{}
	stopped  chan struct{}
	serveErr error
}

func newFakeServer(serveErr error) *fakeServer {
	return &fakeServer{served: make(chan struct{}), stopped: make(chan struct{}), serveErr: serveErr}
}

func (s *fakeServer) Serve(l net.Listener) error {
	close(s.served)
	if s.serveErr != nil {
		return s.serveErr
	}
	<-s.stopped
	return nil
}

func (s *fakeServer) Shutdown(context.Context) error {
	close(s.stopped)
	return nil
}

type fakeListener struct{ net.Listener }

func (fakeListener) Addr() net.Addr { return &net.TCPAddr{Port: 3000} }

func fakeListen(string, string) (net.Listener, error) { return fakeListener{}, nil }

func TestRunServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := newFakeServer(nil)
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	if err := runServer(ctx, srv, ":3000", errCh, &wg, fakeListen, time.Second, nil); err != nil {
		t.Fatalf("runServer: %v", err)
	}
	<-srv.served
	cancel()
	wg.Wait()

	select {
	case err := <-errCh:
		t.Fatalf("unexpected error: %v", err)
	default:
	}
}

func TestRunServer_ListenError(t *testing.T) {
	listen := func(string, string) (net.Listener, error) { return nil, errors.New("in use") }
	var wg sync.WaitGroup
	err := runServer(context.Background(), newFakeServer(nil), ":3000", make(chan error, 1), &wg, listen, 0, nil)
	if err == nil {
		t.Fatalf("expected listen error")
	}
}

func TestRunServer_ServeErrorReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := newFakeServer(errors.New("boom"))
	errCh := make(chan error, 1)
	var wg sync.WaitGroup

	if err := runServer(ctx, srv, ":3000", errCh, &wg, fakeListen, time.Second, nil); err != nil {
		t.Fatalf("runServer: %v", err)
	}
	select {
	case err := <-errCh:
		if err == nil {
			t.Fatalf("expected error")
		}
	case <-time.After(time.Second):
		t.Fatalf("serve error not reported")
	}
	cancel()
	wg.Wait()
}
