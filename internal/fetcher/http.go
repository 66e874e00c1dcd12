package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/cryguy/renderworker/internal/core"
)

const userAgent = "renderworker/1"

// HTTPFetcher is the default fetch capability. It downloads over HTTP(S),
// decodes br and gzip bodies and caps the decoded size.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	ssrf     bool
}

// NewHTTPFetcher builds a fetcher from worker configuration. With
// SSRFProtection set, connections to private address ranges are refused at
// dial time and on redirects.
func NewHTTPFetcher(cfg core.WorkerConfig) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: true,
	}
	if cfg.SSRFProtection {
		transport.Proxy = nil
		transport.DialContext = ssrfSafeDialContext
	}
	f := &HTTPFetcher{
		maxBytes: int64(cfg.MaxResponseBytes),
		ssrf:     cfg.SSRFProtection,
	}
	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			if f.ssrf && IsPrivateHostname(req.URL.String()) {
				return fmt.Errorf("redirect to private address is not allowed")
			}
			return nil
		},
	}
	return f
}

// Fetch issues a GET for locator. The returned body is already decoded.
// Status codes are not checked here.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) (*http.Response, error) {
	if !strings.HasPrefix(locator, "http://") && !strings.HasPrefix(locator, "https://") {
		return nil, fmt.Errorf("unsupported locator scheme")
	}
	if f.ssrf && IsPrivateHostname(locator) {
		return nil, fmt.Errorf("fetch to private address is not allowed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "br, gzip")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := decodeBody(resp)
	if err != nil {
		_ = resp.Body.Close()
		return nil, err
	}
	if f.maxBytes > 0 {
		body = &limitedBody{r: body, remaining: f.maxBytes, closer: body}
	}
	resp.Body = body
	return resp, nil
}

func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	var r io.Reader
	switch enc {
	case "", "identity":
		return resp.Body, nil
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		r = gz
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", enc)
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return &decodedBody{Reader: r, raw: resp.Body}, nil
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (d *decodedBody) Close() error { return d.raw.Close() }

// limitedBody fails with ErrTooLarge once more than remaining bytes are read.
type limitedBody struct {
	r         io.Reader
	remaining int64
	closer    io.Closer
}

func (l *limitedBody) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrTooLarge
	}
	return n, err
}

func (l *limitedBody) Close() error { return l.closer.Close() }

// --- SSRF protection ---

// IsPrivateHostname performs a fast, non-resolving pre-check for obviously
// private hostnames and literal IP addresses.
func IsPrivateHostname(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	hostname := u.Hostname()
	if hostname == "" {
		return true
	}
	lower := strings.ToLower(hostname)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil {
		return IsPrivateIP(ip)
	}
	return false
}

// ssrfSafeDialContext validates resolved addresses at connect time so a DNS
// answer cannot point a public name at a private address.
func ssrfSafeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", host, err)
	}
	for _, ip := range ips {
		if IsPrivateIP(ip.IP) {
			continue
		}
		dialer := &net.Dialer{}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ip.IP.String(), port))
	}
	return nil, fmt.Errorf("fetch to private address is not allowed")
}

var privateRanges []*net.IPNet

func init() {
	for _, cidr := range []string{
		"0.0.0.0/8", "10.0.0.0/8", "100.64.0.0/10", "127.0.0.0/8",
		"169.254.0.0/16", "172.16.0.0/12", "192.0.0.0/24", "192.0.2.0/24",
		"192.168.0.0/16", "198.18.0.0/15", "198.51.100.0/24", "203.0.113.0/24",
		"240.0.0.0/4",
		"::1/128", "fc00::/7", "fe80::/10",
	} {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			panic("invalid CIDR: " + cidr)
		}
		privateRanges = append(privateRanges, n)
	}
}

// IsPrivateIP reports whether ip is loopback, link-local or in a private or
// reserved range.
func IsPrivateIP(ip net.IP) bool {
	for _, n := range privateRanges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
