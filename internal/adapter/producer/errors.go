package producer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/pscheid92/webmon/internal/domain"
	"github.com/pscheid92/webmon/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// isConnectionError reports whether err means the Redis link to the producer is broken.
// Timeouts are not connection errors: a slow producer is still a producer.
func isConnectionError(err error) bool {
	if err == nil || errors.Is(err, goredis.Nil) {
		return false
	}
	if errors.Is(err, goredis.ErrClosed) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return !opErr.Timeout()
	}
	return false
}

func wrapOpError(op string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrProducerGone, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// classifyConnectError stops retrying on errors a retry cannot fix.
func classifyConnectError(err error) retry.Action {
	msg := err.Error()
	if strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "WRONGPASS") {
		return retry.Stop
	}
	return retry.Retry
}
