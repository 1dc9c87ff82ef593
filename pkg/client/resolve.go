package client

import (
	"context"
	"net"
	"net/netip"
	"time"
)

const resolveTimeout = 10 * time.Second

// Resolver looks up the addresses of a host name.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

var defaultResolver Resolver = net.DefaultResolver

// resolution is the single-shot result of an asynchronous lookup. epoch
// ties it to the connect attempt that started it.
type resolution struct {
	epoch uint64
	addr  string
	err   error
}

func isLoopback(host string) bool {
	return host == "127.0.0.1" || host == "localhost"
}

// isIPv6Literal accepts any IPv6 address, including IPv4-mapped and zoned
// forms.
func isIPv6Literal(host string) bool {
	addr, err := netip.ParseAddr(host)
	return err == nil && addr.Is6()
}

func (c *Client) startResolve(host string) {
	c.cancelPending()

	epoch := c.epoch
	result := make(chan resolution, 1)
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	c.pending = result
	c.cancelResolve = cancel

	go func() {
		defer cancel()

		addrs, err := c.resolver.LookupHost(ctx, host)
		r := resolution{epoch: epoch, err: err}
		if err == nil {
			if len(addrs) == 0 {
				r.err = &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
			} else {
				r.addr = addrs[0]
			}
		}
		result <- r
	}()
}

// pollResolution applies a finished lookup. Results from an older epoch
// are discarded.
func (c *Client) pollResolution() {
	if c.pending == nil {
		return
	}

	select {
	case r := <-c.pending:
		c.pending = nil
		c.cancelResolve = nil
		if r.epoch != c.epoch || c.state != Resolving {
			c.logger.Debug("discarding stale resolution", "host", c.serverAddr)
			return
		}
		if r.err != nil {
			c.logger.Error("address resolution failed", "host", c.serverAddr, "error", r.err)
			c.state = Failed
			return
		}
		c.logger.Debug("address resolved", "host", c.serverAddr, "ip", r.addr)
		c.serverIP = r.addr
		c.state = Resolved
	default:
	}
}

// cancelPending abandons an in-flight lookup and moves to a new epoch.
func (c *Client) cancelPending() {
	c.epoch++
	if c.cancelResolve != nil {
		c.cancelResolve()
	}
	c.pending = nil
	c.cancelResolve = nil
}
