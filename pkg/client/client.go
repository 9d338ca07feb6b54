package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/soapkit/pkg/binding"
	"github.com/getmockd/soapkit/pkg/config"
	"github.com/getmockd/soapkit/pkg/fault"
	"github.com/getmockd/soapkit/pkg/logging"
	"github.com/getmockd/soapkit/pkg/metrics"
	"github.com/getmockd/soapkit/pkg/soap"
	"github.com/getmockd/soapkit/pkg/util"
)

// MaxResponseSize is the default limit on reply bodies (10MB).
const MaxResponseSize = 10 << 20

// RequestIDHeader carries the per-call request id.
const RequestIDHeader = "X-Request-ID"

// Client posts SOAP envelopes to one endpoint. It is safe for concurrent use.
type Client struct {
	endpoint     string
	version      soap.Version
	httpClient   *http.Client
	headers      http.Header
	unmarshaller binding.Unmarshaller
	resolver     *fault.Resolver
	tokens       TokenSource
	logger       *slog.Logger
	maxBody      int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: d}
	}
}

// WithVersion sets the SOAP version. The default is SOAP 1.1.
func WithVersion(v soap.Version) Option {
	return func(c *Client) {
		c.version = v
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.headers.Add(key, value)
	}
}

// WithUnmarshaller sets the unmarshaller for reply payloads. The default
// returns the payload as an *etree.Document.
func WithUnmarshaller(u binding.Unmarshaller) Option {
	return func(c *Client) {
		if u != nil {
			c.unmarshaller = u
		}
	}
}

// WithResolver sets the fault resolver.
func WithResolver(r *fault.Resolver) Option {
	return func(c *Client) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithTokenSource adds a bearer token from ts to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMaxResponseSize sets the reply size limit in bytes.
func WithMaxResponseSize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, ErrNoEndpoint
	}
	c := &Client{
		endpoint:     endpoint,
		version:      soap.SOAP11,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		headers:      make(http.Header),
		unmarshaller: binding.Raw{},
		logger:       logging.Nop(),
		maxBody:      MaxResponseSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.resolver == nil {
		c.resolver = fault.NewResolver(fault.WithLogger(c.logger))
	}
	return c, nil
}

// NewFromConfig creates a client from configuration. When the configuration
// names a stylesheet, unmarshaller is wrapped in a TransformingUnmarshaller.
// A nil unmarshaller selects binding.Raw; a nil decoder leaves faults to
// generic extraction. opts are applied after the configuration, except that
// the unmarshaller and resolver always come from the arguments.
func NewFromConfig(cfg *config.Config, unmarshaller binding.Unmarshaller, decoder fault.Decoder, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if cfg.Endpoint == "" {
		return nil, ErrNoEndpoint
	}
	version, err := soap.ParseVersion(cfg.SOAPVersion)
	if err != nil {
		return nil, err
	}
	if unmarshaller == nil {
		unmarshaller = binding.Raw{}
	}

	base := []Option{WithVersion(version)}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	for k, v := range cfg.Headers {
		base = append(base, WithHeader(k, v))
	}
	if cfg.Auth.JWT != nil {
		base = append(base, WithTokenSource(NewJWTSource(*cfg.Auth.JWT)))
	}

	c, err := New(cfg.Endpoint, append(base, opts...)...)
	if err != nil {
		return nil, err
	}

	if cfg.Transform.Stylesheet != "" {
		tu := binding.NewTransformingUnmarshaller(unmarshaller,
			binding.WithEngine(cfg.Transform.Engine),
			binding.WithLogger(c.logger),
		)
		if err := tu.SetTransformFile(cfg.Transform.Stylesheet); err != nil {
			return nil, err
		}
		unmarshaller = tu
	}
	c.unmarshaller = unmarshaller
	c.resolver = fault.NewResolver(fault.WithDecoder(decoder), fault.WithLogger(c.logger))
	return c, nil
}

// Response is a successful reply.
type Response struct {
	// RequestID is the id sent in the X-Request-ID header.
	RequestID  string
	StatusCode int
	Message    *soap.Message
	// Value is the unmarshalled payload, nil for an empty body.
	Value any
}

// attachedMessage lets the fault resolver see the call's attachments.
type attachedMessage struct {
	*soap.Message
	binding.Attachments
}

// Call posts envelope with the given SOAP action. Faults are returned as the
// resolver's error. att is passed to the unmarshaller and the fault decoder.
func (c *Client) Call(ctx context.Context, action string, envelope []byte, att binding.Attachments) (*Response, error) {
	requestID := uuid.NewString()
	start := time.Now()
	log := c.logger.With("request_id", requestID, "action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", c.version.ContentType(action))
	if c.version == soap.SOAP11 {
		req.Header.Set("SOAPAction", `"`+action+`"`)
	}
	req.Header.Set(RequestIDHeader, requestID)
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("client: bearer token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	log.Debug("sending request", "endpoint", c.endpoint, "body", util.TruncateBytes(envelope, 0))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCall("transport_error", time.Since(start))
		log.Warn("request failed", "error", err)
		return nil, fmt.Errorf("client: call %s: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		metrics.RecordCall("transport_error", time.Since(start))
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	if int64(len(body)) > c.maxBody {
		metrics.RecordCall("transport_error", time.Since(start))
		return nil, fmt.Errorf("client: %w: more than %d bytes", ErrResponseTooLarge, c.maxBody)
	}
	elapsed := time.Since(start)
	log.Info("soap call", "status", resp.StatusCode, "duration", elapsed, "bytes", len(body))
	log.Debug("received response", "body", util.TruncateBytes(body, 0))

	msg, parseErr := soap.ParseMessage(body)
	if parseErr != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			metrics.RecordCall("http_error", elapsed)
			return nil, statusError(resp, body)
		}
		metrics.RecordCall("transport_error", elapsed)
		return nil, fmt.Errorf("client: parse response: %w", parseErr)
	}

	if msg.HasFault() {
		metrics.RecordCall("fault", elapsed)
		var fm fault.Message = msg
		if att != nil {
			fm = attachedMessage{Message: msg, Attachments: att}
		}
		err := c.resolver.Resolve(fm)
		log.Info("soap fault", "error", err)
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		metrics.RecordCall("http_error", elapsed)
		return nil, statusError(resp, body)
	}

	out := &Response{RequestID: requestID, StatusCode: resp.StatusCode, Message: msg}
	if payload := msg.Payload(); payload != nil {
		v, err := c.unmarshaller.Unmarshal(binding.TreeSource(payload), att)
		if err != nil {
			metrics.RecordCall("decode_error", elapsed)
			return nil, err
		}
		out.Value = v
	}
	metrics.RecordCall("ok", elapsed)
	return out, nil
}

func statusError(resp *http.Response, body []byte) *StatusError {
	return &StatusError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       util.TruncateBytes(bytes.TrimSpace(body), 512),
	}
}
