package feed

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"wormsign/internal/compromise"
	"wormsign/internal/model"
)

const (
	DefaultTimeout      = 5 * time.Second
	DefaultMaxRedirects = 5
	DefaultRetryMax     = 2

	userAgent   = "worm-sign"
	maxBodySize = 64 << 20
)

var (
	ErrForbiddenAddress = errors.New("access to private address is forbidden")
	ErrInsecureScheme   = errors.New("only HTTPS is allowed")
	ErrTooManyRedirects = errors.New("too many redirects")
)

type Options struct {
	Timeout      time.Duration
	MaxRedirects int
	RetryMax     int
	// RequestsPerSecond spaces requests across sources. Zero means 5.
	RequestsPerSecond float64
	// AllowPrivate disables the private address check. Tests only.
	AllowPrivate bool
	// Insecure skips TLS verification. Tests only.
	Insecure bool
	Logger   *zerolog.Logger
}

// Fetcher downloads compromise lists over HTTPS, refusing to connect to
// private, loopback or link-local addresses.
type Fetcher struct {
	client       *retryablehttp.Client
	limiter      *rate.Limiter
	allowPrivate bool
	maxRedirects int
	log          zerolog.Logger
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = DefaultMaxRedirects
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}

	f := &Fetcher{
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		allowPrivate: opts.AllowPrivate,
		maxRedirects: opts.MaxRedirects,
		log:          zerolog.Nop(),
	}
	if opts.Logger != nil {
		f.log = opts.Logger.With().Str("component", "feed").Logger()
	}

	transport := &http.Transport{
		Proxy:               nil,
		DialContext:         f.dialContext,
		TLSHandshakeTimeout: opts.Timeout,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.Insecure},
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Timeout:       opts.Timeout,
		Transport:     transport,
		CheckRedirect: f.checkRedirect,
	}
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = time.Second
	client.Logger = nil
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	f.client = client

	return f
}

// IsPrivateIP reports addresses a feed must never be fetched from.
func IsPrivateIP(ip net.IP) bool {
	return ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// dialContext resolves the host itself so the address that is checked is
// the address that is dialed.
func (f *Fetcher) dialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed for %s: %w", host, err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("DNS lookup for %s returned no addresses", host)
	}
	if !f.allowPrivate {
		for _, ip := range ips {
			if IsPrivateIP(ip.IP) {
				return nil, fmt.Errorf("%w: %s resolves to %s", ErrForbiddenAddress, host, ip.IP)
			}
		}
	}
	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= f.maxRedirects {
		return ErrTooManyRedirects
	}
	if req.URL.Scheme != "https" {
		return fmt.Errorf("%w: redirect to %s", ErrInsecureScheme, req.URL.Redacted())
	}
	return nil
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if errors.Is(err, ErrForbiddenAddress) || errors.Is(err, ErrTooManyRedirects) || errors.Is(err, ErrInsecureScheme) {
		return false, err
	}
	retry, policyErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	if err == nil && ctx.Err() == nil {
		// bad statuses are reported by FetchOne, which sees the response
		policyErr = nil
	}
	return retry, policyErr
}

// Fetch downloads every source concurrently. A failing source becomes
// one error string and never stops the others. Records are deduplicated
// on name@version, first source wins.
func (f *Fetcher) Fetch(ctx context.Context, sources []Source) ([]model.CompromiseRecord, []string) {
	results := make([][]model.CompromiseRecord, len(sources))
	errs := make([]error, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			results[i], errs[i] = f.FetchOne(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	var records []model.CompromiseRecord
	var messages []string
	for i, src := range sources {
		if errs[i] != nil {
			name := src.Name
			if name == "" {
				name = src.URL
			}
			messages = append(messages, fmt.Sprintf("Failed to fetch from %s: %v", name, errs[i]))
			continue
		}
		records = append(records, results[i]...)
	}
	return compromise.Dedupe(records), messages
}

// FetchOne downloads and decodes a single source.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) ([]model.CompromiseRecord, error) {
	u, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %s", src.URL)
	}
	if u.Scheme != "https" {
		return nil, ErrInsecureScheme
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if src.Format == FormatJSON {
		req.Header.Set("Accept", "application/json")
	} else {
		req.Header.Set("Accept", "text/csv")
	}

	f.log.Debug().Str("source", src.Name).Str("url", u.Redacted()).Msg("Fetching compromise list")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var records []model.CompromiseRecord
	switch src.Format {
	case FormatJSON:
		records, err = compromise.ParseJSON(body)
		if errors.Is(err, compromise.ErrNoPackages) {
			return nil, errors.New(`invalid API response: "packages" field must be an array`)
		}
	default:
		records, err = compromise.ParseCSV(bytes.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}
	f.log.Debug().Str("source", src.Name).Int("records", len(records)).Msg("Fetched compromise list")
	return records, nil
}
