// Package brokertest runs a loopback broker that speaks the piko frame
// protocol, for exchange and dispatcher tests.
package brokertest

import (
	"net"
	"sync"
	"testing"

	"github.com/lyuben-todorov/piko-cli/internal/protocol"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/frame"
)

// Handler answers one decoded request.
type Handler func(req protocol.Request) protocol.Response

// Broker accepts one request per connection, the way the real broker does.
type Broker struct {
	ln   net.Listener
	conn func(net.Conn)

	mu       sync.Mutex
	requests []protocol.Request
	wg       sync.WaitGroup
}

// Start serves h on 127.0.0.1 and stops when the test ends.
func Start(t testing.TB, h Handler) *Broker {
	t.Helper()
	b := &Broker{}
	b.conn = func(conn net.Conn) { b.answer(conn, h) }
	b.listen(t)
	return b
}

// StartRaw hands every accepted connection to fn, for peers that misbehave
// at the frame level. fn must not close conn; the broker does.
func StartRaw(t testing.TB, fn func(conn net.Conn)) *Broker {
	t.Helper()
	b := &Broker{conn: fn}
	b.listen(t)
	return b
}

// ClosedAddr returns a loopback address nothing is listening on.
func ClosedAddr(t testing.TB) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	if err := ln.Close(); err != nil {
		t.Fatalf("close listener: %v", err)
	}
	return addr
}

func (b *Broker) listen(t testing.TB) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b.ln = ln
	b.wg.Add(1)
	go b.serve()
	t.Cleanup(b.Close)
}

func (b *Broker) Addr() string {
	return b.ln.Addr().String()
}

// Requests returns the decoded requests seen so far, oldest first.
func (b *Broker) Requests() []protocol.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Close stops accepting and waits for in-flight connections.
func (b *Broker) Close() {
	_ = b.ln.Close()
	b.wg.Wait()
}

func (b *Broker) serve() {
	defer b.wg.Done()
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			defer conn.Close()
			b.conn(conn)
		}()
	}
}

func (b *Broker) answer(conn net.Conn, h Handler) {
	body, err := frame.ReadFrame(conn)
	if err != nil {
		return
	}
	var resp protocol.Response
	req, err := protocol.DecodeRequest(body)
	if err != nil {
		resp = protocol.Error{Message: "malformed request"}
	} else {
		b.mu.Lock()
		b.requests = append(b.requests, req)
		b.mu.Unlock()
		resp = h(req)
	}
	out, err := protocol.EncodeResponse(resp)
	if err != nil {
		return
	}
	_ = frame.WriteFrame(conn, out)
}

// Reply answers every request with resp.
func Reply(resp protocol.Response) Handler {
	return func(protocol.Request) protocol.Response { return resp }
}

// PubSub models subscription state per client id so repeated sub/unsub
// produce the broker's rejections.
func PubSub() Handler {
	var mu sync.Mutex
	subscribed := make(map[uint64]bool)
	return func(req protocol.Request) protocol.Response {
		mu.Lock()
		defer mu.Unlock()
		switch r := req.(type) {
		case protocol.Publish:
			return protocol.Success{Message: "published", Bytes: []byte{}}
		case protocol.Subscribe:
			if subscribed[r.ClientID] {
				return protocol.Error{Message: "already subscribed"}
			}
			subscribed[r.ClientID] = true
			return protocol.Success{Message: "subscribed", Bytes: []byte{}}
		case protocol.Unsubscribe:
			if !subscribed[r.ClientID] {
				return protocol.Error{Message: "not subscribed"}
			}
			delete(subscribed, r.ClientID)
			return protocol.Success{Message: "unsubscribed", Bytes: []byte{}}
		default:
			return protocol.Error{Message: "unsupported request"}
		}
	}
}
