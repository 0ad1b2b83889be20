package imapretry

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/cloudmail/imapengine"
)

type fakeConn struct{ net.Conn }

func TestRunSucceedsFirstTry(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond}, nil)
	want := &fakeConn{}
	got, err := c.Run(context.Background(), func(ctx context.Context, attempt int) (net.Conn, error) {
		return want, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != want {
		t.Fatalf("got different conn back")
	}
}

func TestRunRetriesThenSucceeds(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil)
	attempts := 0
	_, err := c.Run(context.Background(), func(ctx context.Context, attempt int) (net.Conn, error) {
		attempts++
		if attempt < 3 {
			return nil, &net.OpError{Op: "dial", Err: errors.New("connection refused")}
		}
		return &fakeConn{}, nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("got %d attempts, want 3", attempts)
	}
}

func TestRunGivesUpOnNonRetryable(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond}, nil)
	sentinel := errors.New("bad credentials")
	attempts := 0
	_, err := c.Run(context.Background(), func(ctx context.Context, attempt int) (net.Conn, error) {
		attempts++
		return nil, sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want %v", err, sentinel)
	}
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}

func TestRunRespectsMaxAttempts(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, MaxAttempts: 2}, nil)
	attempts := 0
	_, err := c.Run(context.Background(), func(ctx context.Context, attempt int) (net.Conn, error) {
		attempts++
		return nil, &net.OpError{Op: "dial", Err: errors.New("refused")}
	})
	if err == nil {
		t.Fatalf("expected an error")
	}
	if attempts != 2 {
		t.Fatalf("got %d attempts, want 2", attempts)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatalf("nil should not be retryable")
	}
	if !IsRetryable(&net.OpError{Op: "dial", Err: errors.New("refused")}) {
		t.Fatalf("net.OpError should be retryable")
	}
	if IsRetryable(errors.New("bad password")) {
		t.Fatalf("a plain error should not be retryable")
	}
}

func TestIsRetryableServerErrorKeywords(t *testing.T) {
	retryable := &imap.Error{Kind: imap.ErrKindServerError, Status: &imap.StatusResponse{Text: "server busy, please retry"}}
	if !IsRetryable(retryable) {
		t.Fatalf("ServerError mentioning BUSY should be retryable")
	}

	notRetryable := &imap.Error{Kind: imap.ErrKindServerError, Status: &imap.StatusResponse{Text: "mailbox does not exist"}}
	if IsRetryable(notRetryable) {
		t.Fatalf("ServerError with no temporary-failure keyword should not be retryable")
	}
}

func TestRetryableErrorsToggles(t *testing.T) {
	off := RetryableErrors{}
	err := &imap.Error{Kind: imap.ErrKindTimeout}
	if off.classify(err) {
		t.Fatalf("Timeout disabled should not be retryable")
	}

	on := allRetryable()
	if !on.classify(err) {
		t.Fatalf("Timeout enabled should be retryable")
	}
}

func TestBackoffMultiplier(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Second, MaxDelay: time.Hour, Multiplier: 3, Jitter: 0}, nil)
	c.Policy.Jitter = 0 // withDefaults turns a zero Jitter into 0.2; clear it for exact delays
	if got, want := c.backoff(1), time.Second; got != want {
		t.Fatalf("backoff(1) = %v, want %v", got, want)
	}
	if got, want := c.backoff(3), 9*time.Second; got != want {
		t.Fatalf("backoff(3) = %v, want %v", got, want)
	}
}

func TestExecuteWithReconnect(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond}, nil)

	reconnects := 0
	attempts := 0
	err := c.ExecuteWithReconnect(context.Background(), "fetch", nil,
		func(ctx context.Context) error {
			reconnects++
			return nil
		},
		func(ctx context.Context, attempt int) error {
			attempts++
			if attempts < 3 {
				return &imap.Error{Kind: imap.ErrKindConnectionClosed, Message: "connection closed"}
			}
			return nil
		})
	if err != nil {
		t.Fatalf("ExecuteWithReconnect: %v", err)
	}
	if reconnects != 2 {
		t.Fatalf("got %d reconnects, want 2", reconnects)
	}
}

func TestExecuteWithReconnectFailure(t *testing.T) {
	c := NewController(Policy{BaseDelay: time.Millisecond}, nil)

	sentinel := errors.New("dial refused")
	err := c.ExecuteWithReconnect(context.Background(), "fetch", nil,
		func(ctx context.Context) error { return sentinel },
		func(ctx context.Context, attempt int) error {
			return &imap.Error{Kind: imap.ErrKindConnectionClosed, Message: "connection closed"}
		})
	if !errors.Is(err, sentinel) {
		t.Fatalf("got %v, want %v", err, sentinel)
	}
}
