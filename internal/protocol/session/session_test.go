package session

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lyuben-todorov/piko-cli/internal/protocol"
	"github.com/lyuben-todorov/piko-cli/internal/protocol/frame"
	"github.com/lyuben-todorov/piko-cli/internal/testutil/brokertest"
	"github.com/lyuben-todorov/piko-cli/internal/testutil/testlog"
)

func TestExchangePublishSuccess(t *testing.T) {
	testlog.Start(t)
	b := brokertest.Start(t, brokertest.Reply(protocol.Success{Message: "published"}))

	resp, err := Exchange(context.Background(), b.Addr(), protocol.Publish{ClientID: 1234, Payload: []byte("hello world")}, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, protocol.Success{Message: "published", Bytes: []byte{}}, resp)

	reqs := b.Requests()
	require.Len(t, reqs, 1)
	require.Equal(t, protocol.Publish{ClientID: 1234, Payload: []byte("hello world")}, reqs[0])
}

func TestExchangeErrorResponse(t *testing.T) {
	testlog.Start(t)
	b := brokertest.Start(t, brokertest.Reply(protocol.Error{Message: "already subscribed"}))

	resp, err := NewClient(b.Addr(), DefaultConfig()).Exchange(context.Background(), protocol.Subscribe{ClientID: 1234})
	require.NoError(t, err)
	require.Equal(t, protocol.Error{Message: "already subscribed"}, resp)

	var rejected *protocol.RejectedError
	require.ErrorAs(t, protocol.AsError(resp), &rejected)
}

func TestExchangeOneConnectionPerCall(t *testing.T) {
	testlog.Start(t)
	b := brokertest.Start(t, brokertest.PubSub())
	client := NewClient(b.Addr(), DefaultConfig())

	first, err := client.Exchange(context.Background(), protocol.Subscribe{ClientID: 1})
	require.NoError(t, err)
	require.Equal(t, "subscribed", first.(protocol.Success).Message)

	second, err := client.Exchange(context.Background(), protocol.Subscribe{ClientID: 1})
	require.NoError(t, err)
	require.Equal(t, protocol.Error{Message: "already subscribed"}, second)

	require.Len(t, b.Requests(), 2)
}

func TestExchangeConnectFailed(t *testing.T) {
	testlog.Start(t)
	addr := brokertest.ClosedAddr(t)

	_, err := Exchange(context.Background(), addr, protocol.Subscribe{ClientID: 1}, DefaultConfig())
	require.ErrorIs(t, err, ErrConnectFailed)

	var connErr *ConnectError
	require.ErrorAs(t, err, &connErr)
	require.Equal(t, addr, connErr.Addr)
}

func TestExchangePayloadTooLargeWritesNothing(t *testing.T) {
	testlog.Start(t)
	accepted := make(chan struct{}, 1)
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		accepted <- struct{}{}
	})

	_, err := Exchange(context.Background(), b.Addr(), protocol.Publish{ClientID: 1, Payload: bytes.Repeat([]byte("x"), 256)}, DefaultConfig())
	require.ErrorIs(t, err, frame.ErrPayloadTooLarge)

	select {
	case <-accepted:
		t.Fatalf("oversized request must be rejected before connecting")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExchangeTruncatedResponse(t *testing.T) {
	testlog.Start(t)
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		if _, err := frame.ReadFrame(conn); err != nil {
			return
		}
		_, _ = conn.Write([]byte{10, 0xa1, 0x65})
	})

	_, err := Exchange(context.Background(), b.Addr(), protocol.Subscribe{ClientID: 1}, DefaultConfig())
	require.ErrorIs(t, err, frame.ErrTruncated)
}

func TestExchangePeerClosesWithoutAnswer(t *testing.T) {
	testlog.Start(t)
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		_, _ = frame.ReadFrame(conn)
	})

	_, err := Exchange(context.Background(), b.Addr(), protocol.Unsubscribe{ClientID: 1}, DefaultConfig())
	require.ErrorIs(t, err, frame.ErrConnectionClosed)
}

func TestExchangeMalformedResponse(t *testing.T) {
	testlog.Start(t)
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		if _, err := frame.ReadFrame(conn); err != nil {
			return
		}
		_ = frame.WriteFrame(conn, []byte("not cbor at all"))
	})

	_, err := Exchange(context.Background(), b.Addr(), protocol.Subscribe{ClientID: 1}, DefaultConfig())
	require.ErrorIs(t, err, protocol.ErrMalformedPayload)
}

func TestExchangeReadTimeout(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		<-release
	})
	defer close(release)

	cfg := DefaultConfig()
	cfg.ReadTimeout = 50 * time.Millisecond
	_, err := Exchange(context.Background(), b.Addr(), protocol.Subscribe{ClientID: 1}, cfg)
	require.Error(t, err)

	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected timeout, got %v", err)
}

func TestExchangeContextDeadlineBoundsRead(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	b := brokertest.StartRaw(t, func(conn net.Conn) {
		<-release
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	started := time.Now()
	_, err := Exchange(ctx, b.Addr(), protocol.Unsubscribe{ClientID: 1}, DefaultConfig())
	require.Error(t, err)
	require.Less(t, time.Since(started), 2*time.Second)
}

func TestDeadlinePicksEarliest(t *testing.T) {
	require.True(t, deadline(context.Background(), 0).IsZero())

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	dl := deadline(ctx, time.Second)
	require.WithinDuration(t, time.Now().Add(time.Second), dl, 500*time.Millisecond)

	short, cancelShort := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancelShort()
	ctxDl, _ := short.Deadline()
	require.Equal(t, ctxDl, deadline(short, time.Hour))
}
