package ingest

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	fetchTimeout = 15 * time.Second
	maxBodyBytes = 10 << 20
	maxRedirects = 5
)

var blockedHosts = map[string]bool{
	"localhost":                true,
	"metadata.google.internal": true,
	"169.254.169.254":          true,
}

type ctxKey int

const allowPrivateKey ctxKey = iota

// AllowPrivate returns a context under which fetches may reach private and
// loopback addresses. For trusted local sources only.
func AllowPrivate(ctx context.Context) context.Context {
	return context.WithValue(ctx, allowPrivateKey, true)
}

func privateAllowed(ctx context.Context) bool {
	v, _ := ctx.Value(allowPrivateKey).(bool)
	return v
}

// checkURL rejects URLs that could reach internal services: non-HTTP
// schemes, loopback and private addresses, and cloud metadata hosts. Every
// resolved address must pass, not just the first.
func checkURL(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, fmt.Errorf("url has no host")
	}
	if privateAllowed(ctx) {
		return u, nil
	}
	if blockedHosts[host] || strings.HasSuffix(host, ".local") || strings.HasSuffix(host, ".internal") {
		return nil, fmt.Errorf("blocked host %q", host)
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", host, err)
	}
	for _, ip := range ips {
		if isDisallowedIP(ip) {
			return nil, fmt.Errorf("host %q resolves to disallowed address %s", host, ip)
		}
	}
	return u, nil
}

func isDisallowedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// safeClient returns an HTTP client that re-validates the destination on
// every redirect hop.
func safeClient() *http.Client {
	return &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("too many redirects")
			}
			if _, err := checkURL(req.Context(), req.URL.String()); err != nil {
				return fmt.Errorf("redirect rejected: %w", err)
			}
			return nil
		},
	}
}

// fetchURL gets a vetted URL and returns at most maxBodyBytes of the body.
func fetchURL(ctx context.Context, raw string) ([]byte, error) {
	u, err := checkURL(ctx, raw)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "researchvault/1.0")

	resp, err := safeClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
