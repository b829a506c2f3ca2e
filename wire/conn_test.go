package wire

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/agilira/keystone"
)

type fakeProcessor struct {
	store map[string][]byte
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{store: make(map[string][]byte)}
}

func (f *fakeProcessor) Process(ctx context.Context, cmd keystone.Command) keystone.Reply {
	switch cmd.Kind {
	case keystone.CmdPing:
		return keystone.Reply{OK: true}
	case keystone.CmdPut:
		f.store[string(cmd.Key)] = cmd.Value
		return keystone.Reply{OK: true}
	case keystone.CmdGet:
		v, ok := f.store[string(cmd.Key)]
		return keystone.Reply{OK: true, Found: ok, Value: v}
	case keystone.CmdDelete:
		_, ok := f.store[string(cmd.Key)]
		delete(f.store, string(cmd.Key))
		return keystone.Reply{OK: true, Found: ok}
	default:
		return keystone.Reply{OK: true}
	}
}

func TestServeConnTextRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	proc := newFakeProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ServeConn(ctx, server, proc, ConnConfig{MaxFrameBytes: 1 << 16, IdleTimeout: 2 * time.Second})

	reader := bufio.NewReader(client)

	client.Write([]byte("PUT alpha hello\n"))
	line, err := reader.ReadString('\n')
	if err != nil || line != "OK\n" {
		t.Fatalf("PUT reply = %q, err=%v", line, err)
	}

	client.Write([]byte("GET alpha\n"))
	line, err = reader.ReadString('\n')
	if err != nil || line != "hello\n" {
		t.Fatalf("GET reply = %q, err=%v", line, err)
	}

	client.Write([]byte("GET missing\n"))
	line, err = reader.ReadString('\n')
	if err != nil || line != "NULL\n" {
		t.Fatalf("GET missing reply = %q, err=%v", line, err)
	}

	client.Close()
}

func TestServeConnPingBinary(t *testing.T) {
	server, client := net.Pipe()
	proc := newFakeProcessor()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ServeConn(ctx, server, proc, ConnConfig{MaxFrameBytes: 1 << 16, IdleTimeout: 2 * time.Second})

	client.Write([]byte{tagPing})
	resp := make([]byte, 1)
	if _, err := client.Read(resp); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if resp[0] != RespPong {
		t.Fatalf("resp = %#x, want RespPong", resp[0])
	}
	client.Close()
}

func TestServeConnStopsOnContextCancel(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()
	proc := newFakeProcessor()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		ServeConn(ctx, server, proc, ConnConfig{MaxFrameBytes: 1 << 16, IdleTimeout: time.Second})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeConn did not return after context cancellation")
	}
}
