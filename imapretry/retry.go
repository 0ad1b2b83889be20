// Package imapretry implements the reconnect/retry controller: classifying
// which errors are worth retrying, computing exponential backoff with
// jitter, and driving a caller-supplied operation until it succeeds or the
// policy gives up.
package imapretry

import (
	"context"
	"crypto/tls"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/cloudmail/imapengine"
	"github.com/cloudmail/imapengine/internal/ilog"
)

// RetryableErrors toggles which error classes the controller treats as
// worth retrying. A nil *RetryableErrors on Policy enables every class.
type RetryableErrors struct {
	// ConnectionLost covers imap.ErrKindConnectionError and
	// imap.ErrKindConnectionClosed.
	ConnectionLost bool
	// Timeout covers imap.ErrKindTimeout and context.DeadlineExceeded.
	Timeout bool
	// TemporaryFailure covers imap.ErrKindServerError whose text mentions
	// UNAVAILABLE, TRY AGAIN, TEMPORARY, or BUSY.
	TemporaryFailure bool
	// NetworkError covers net.Error/*net.OpError and any other error
	// whose description mentions network, connection, or timed out.
	NetworkError bool
	// TLSHandshakeFailure covers *tls.RecordHeaderError and any other
	// error whose description mentions tls, handshake, or certificate.
	TLSHandshakeFailure bool
}

func allRetryable() RetryableErrors {
	return RetryableErrors{
		ConnectionLost:      true,
		Timeout:             true,
		TemporaryFailure:    true,
		NetworkError:        true,
		TLSHandshakeFailure: true,
	}
}

// Policy configures the retry controller.
type Policy struct {
	// MaxAttempts bounds how many attempts are made, including the first.
	// Zero means unlimited (retry forever).
	MaxAttempts int
	// BaseDelay is the delay before the first retry (spec's initialDelay).
	// Defaults to 1s.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff. Defaults to 30s.
	MaxDelay time.Duration
	// Multiplier scales the delay on each successive attempt:
	// delay = clip(BaseDelay * Multiplier^(attempt-1), MaxDelay). Defaults
	// to 2 (pure doubling).
	Multiplier float64
	// Jitter is the fraction (0..1) of the computed delay randomly added to
	// or subtracted from it, to avoid synchronized reconnect storms.
	// Defaults to 0.2.
	Jitter float64
	// RetryableErrors selects which error classes count as retryable. Nil
	// enables every class.
	RetryableErrors *RetryableErrors
}

func (p Policy) withDefaults() Policy {
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 0 {
		p.Multiplier = 2
	}
	if p.Jitter <= 0 {
		p.Jitter = 0.2
	}
	if p.RetryableErrors == nil {
		all := allRetryable()
		p.RetryableErrors = &all
	}
	return p
}

// Controller drives an operation through Policy's backoff schedule.
type Controller struct {
	Policy Policy
	Logger *ilog.Logger
}

// NewController creates a Controller. A nil logger discards log output.
func NewController(policy Policy, logger *ilog.Logger) *Controller {
	if logger == nil {
		logger = ilog.Noop()
	}
	return &Controller{Policy: policy.withDefaults(), Logger: logger}
}

// Work is one attempt at a retryable operation.
type Work func(ctx context.Context, attempt int) error

// Execute is the controller's first entry point: run work, retrying on
// retryable errors per Policy, until it succeeds, a non-retryable error
// occurs, MaxAttempts is exhausted, or ctx is cancelled.
func (c *Controller) Execute(ctx context.Context, op string, work Work) error {
	for attempt := 1; ; attempt++ {
		err := work(ctx, attempt)
		if err == nil {
			return nil
		}

		retryable := c.Policy.RetryableErrors.classify(err)
		if !retryable || (c.Policy.MaxAttempts > 0 && attempt >= c.Policy.MaxAttempts) {
			c.Logger.Error("attempt exhausted", "op", op, "attempt", attempt, "retryable", retryable, "err", err)
			return err
		}

		delay := c.backoff(attempt)
		c.Logger.Warn("attempt failed, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// NeedsReconnect reports whether err should trigger a reconnect before the
// next attempt.
type NeedsReconnect func(err error) bool

// DefaultNeedsReconnect is the default reconnect predicate for
// ExecuteWithReconnect: true for a dropped connection, or a ServerError
// whose text mentions BYE, DISCONNECTED, or CONNECTION RESET.
func DefaultNeedsReconnect(err error) bool {
	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		switch imapErr.Kind {
		case imap.ErrKindConnectionError, imap.ErrKindConnectionClosed:
			return true
		case imap.ErrKindServerError:
			return containsAnyFold(serverErrorText(imapErr), "BYE", "DISCONNECTED", "CONNECTION RESET")
		}
	}
	return false
}

// ExecuteWithReconnect is the controller's second entry point: like
// Execute, but when needsReconnect(err) is true, it calls reconnect
// immediately and retries without counting a backoff delay for that
// attempt. A nil needsReconnect defaults to DefaultNeedsReconnect.
func (c *Controller) ExecuteWithReconnect(ctx context.Context, op string, needsReconnect NeedsReconnect, reconnect func(ctx context.Context) error, work Work) error {
	if needsReconnect == nil {
		needsReconnect = DefaultNeedsReconnect
	}

	for attempt := 1; ; attempt++ {
		err := work(ctx, attempt)
		if err == nil {
			return nil
		}

		if needsReconnect(err) {
			c.Logger.Warn("connection lost, reconnecting before retry", "op", op, "attempt", attempt, "err", err)
			if rErr := reconnect(ctx); rErr != nil {
				c.Logger.Error("reconnect failed", "op", op, "attempt", attempt, "err", rErr)
				return rErr
			}
			if c.Policy.MaxAttempts > 0 && attempt >= c.Policy.MaxAttempts {
				return err
			}
			continue
		}

		retryable := c.Policy.RetryableErrors.classify(err)
		if !retryable || (c.Policy.MaxAttempts > 0 && attempt >= c.Policy.MaxAttempts) {
			c.Logger.Error("attempt exhausted", "op", op, "attempt", attempt, "retryable", retryable, "err", err)
			return err
		}

		delay := c.backoff(attempt)
		c.Logger.Warn("attempt failed, retrying", "op", op, "attempt", attempt, "delay", delay, "err", err)
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Connect is a caller-supplied function that attempts to establish one
// connection, returning an error classified by Policy.RetryableErrors.
type Connect func(ctx context.Context, attempt int) (net.Conn, error)

// Run is the connection-establishing specialization of Execute: it drives
// connect through Policy's backoff schedule and returns the first
// successfully established net.Conn.
func (c *Controller) Run(ctx context.Context, connect Connect) (net.Conn, error) {
	var conn net.Conn
	err := c.Execute(ctx, "connect", func(ctx context.Context, attempt int) error {
		var err error
		conn, err = connect(ctx, attempt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Controller) backoff(attempt int) time.Duration {
	d := float64(c.Policy.BaseDelay) * math.Pow(c.Policy.Multiplier, float64(attempt-1))
	maxDelay := float64(c.Policy.MaxDelay)
	if d <= 0 || d > maxDelay {
		d = maxDelay
	}
	jitter := d * c.Policy.Jitter * (rand.Float64()*2 - 1)
	d += jitter
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// IsRetryable classifies an error as worth retrying under the default
// policy (every error class enabled): connection refused/reset, timeouts,
// temporary server failures, temporary network errors, and TLS handshake
// failures caused by a transient network condition. Authentication
// failures and protocol errors are never retryable. The Controller itself
// uses Policy.RetryableErrors.classify, which is this same logic gated by
// per-class toggles.
func IsRetryable(err error) bool {
	all := allRetryable()
	return all.classify(err)
}

func (re *RetryableErrors) classify(err error) bool {
	if err == nil {
		return false
	}

	var imapErr *imap.Error
	if errors.As(err, &imapErr) {
		switch imapErr.Kind {
		case imap.ErrKindConnectionError, imap.ErrKindConnectionClosed:
			return re.ConnectionLost
		case imap.ErrKindTimeout:
			return re.Timeout
		case imap.ErrKindServerError:
			return re.TemporaryFailure && containsAnyFold(serverErrorText(imapErr), "UNAVAILABLE", "TRY AGAIN", "TEMPORARY", "BUSY")
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return re.NetworkError
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return re.NetworkError
	}

	var tlsErr *tls.RecordHeaderError
	if errors.As(err, &tlsErr) {
		return re.TLSHandshakeFailure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return re.Timeout
	}

	desc := err.Error()
	if re.NetworkError && containsAnyFold(desc, "network", "connection", "timed out") {
		return true
	}
	if re.TLSHandshakeFailure && containsAnyFold(desc, "tls", "handshake", "certificate") {
		return true
	}
	return false
}

// serverErrorText gathers the text an ErrKindServerError keyword match
// runs against: the error's own message plus the server's status text,
// if any.
func serverErrorText(err *imap.Error) string {
	text := err.Message
	if err.Status != nil && err.Status.Text != "" {
		text += " " + err.Status.Text
	}
	return text
}

func containsAnyFold(s string, substrs ...string) bool {
	upper := strings.ToUpper(s)
	for _, sub := range substrs {
		if strings.Contains(upper, strings.ToUpper(sub)) {
			return true
		}
	}
	return false
}
