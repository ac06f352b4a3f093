// Package network provides the proxy dialers shared by the event publishers.
package network

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"golang.org/x/net/proxy"

	"servicehost/internal/config"
)

// ContextDialFunc matches the Dialer hook of go-redis options.
type ContextDialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Enabled reports whether the SOCKS settings name a usable proxy.
func Enabled(cfg config.SOCKSConfig) bool {
	return cfg.Host != "" && cfg.Port > 0
}

// NewSOCKS5Dialer creates a SOCKS5 proxy dialer for the configured proxy.
func NewSOCKS5Dialer(cfg config.SOCKSConfig) (proxy.Dialer, error) {
	if !Enabled(cfg) {
		return nil, fmt.Errorf("SOCKS5 proxy host and port are required")
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer for %s: %w", addr, err)
	}
	return dialer, nil
}

// ContextDialer returns a dial function routed through the SOCKS5 proxy.
// It returns nil when no proxy is configured so callers keep their default.
func ContextDialer(cfg config.SOCKSConfig) (ContextDialFunc, error) {
	if !Enabled(cfg) {
		return nil, nil
	}
	dialer, err := NewSOCKS5Dialer(cfg)
	if err != nil {
		return nil, err
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
