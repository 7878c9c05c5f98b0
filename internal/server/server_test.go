package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

func TestListenSecondBindFails(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	second, err := Listen(ln.Addr().String(), 0)
	if err == nil {
		second.Close()
		t.Fatal("expected second bind on the same port to fail")
	}
}

func TestPort(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, want, _ := net.SplitHostPort(ln.Addr().String())
	if got := Port(ln); got != want || got == "0" {
		t.Fatalf("expected port %s, got %s", want, got)
	}
}

func TestListenLimitsConnections(t *testing.T) {
	ln, err := Listen("127.0.0.1:0", 1)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	c1, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c1.Close()
	first := <-accepted

	c2, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c2.Close()

	select {
	case c := <-accepted:
		c.Close()
		t.Fatal("second connection accepted while the limit was reached")
	case <-time.After(100 * time.Millisecond):
	}

	first.Close()
	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("second connection not accepted after the first was released")
	}
}

func TestNewHTTPServerAppliesTimeouts(t *testing.T) {
	srv := NewHTTPServer(http.NotFoundHandler(), DefaultTimeouts)
	if srv.ReadTimeout != 5*time.Second || srv.ReadHeaderTimeout != 2*time.Second {
		t.Fatalf("unexpected read timeouts: %v %v", srv.ReadTimeout, srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout != 10*time.Second || srv.IdleTimeout != 60*time.Second {
		t.Fatalf("unexpected write/idle timeouts: %v %v", srv.WriteTimeout, srv.IdleTimeout)
	}
	if srv.MaxHeaderBytes != 64<<10 {
		t.Fatalf("unexpected max header bytes %d", srv.MaxHeaderBytes)
	}
}

func startHTTP(t *testing.T, body string) (Runner, string) {
	t.Helper()
	ln, err := Listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, body)
	})
	return HTTPRunner(body, NewHTTPServer(h, DefaultTimeouts), ln), "http://" + ln.Addr().String()
}

func waitForBody(t *testing.T, url, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if string(b) == want {
				return
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server at %s never answered %q (last error %v)", url, want, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestGroupRunsUntilContextCancelled(t *testing.T) {
	a, urlA := startHTTP(t, "a")
	b, urlB := startHTTP(t, "b")

	var shutdownCalls atomic.Int32
	g := NewGroup(time.Second)
	g.OnShutdown = func() { shutdownCalls.Add(1) }
	g.Add(a)
	g.Add(b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	waitForBody(t, urlA, "a")
	waitForBody(t, urlB, "b")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop")
	}
	if n := shutdownCalls.Load(); n != 1 {
		t.Fatalf("expected OnShutdown once, got %d", n)
	}
	if _, err := http.Get(urlA); err == nil {
		t.Fatal("expected server a to be closed")
	}
}

func TestGroupStopsAllWhenOneFails(t *testing.T) {
	a, _ := startHTTP(t, "a")
	boom := errors.New("boom")

	g := NewGroup(time.Second)
	g.Add(a)
	g.Add(Runner{
		Name: "failing",
		Serve: func() error {
			time.Sleep(50 * time.Millisecond)
			return boom
		},
	})

	done := make(chan error, 1)
	go func() { done <- g.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if err.Error() != "failing: boom" {
			t.Fatalf("expected runner name in error, got %q", err.Error())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("group did not stop after a runner failed")
	}
}
