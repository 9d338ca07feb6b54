package client

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/soapkit/pkg/binding"
	"github.com/getmockd/soapkit/pkg/config"
	"github.com/getmockd/soapkit/pkg/fault"
	"github.com/getmockd/soapkit/pkg/soap"
)

const (
	okEnvelope = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Body><acc:Balance xmlns:acc="urn:accounts"><acc:Amount>12.50</acc:Amount></acc:Balance></soap:Body></soap:Envelope>`

	faultEnvelope = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><soap:Fault>` +
		`<faultcode>soap:Server</faultcode><faultstring>boom</faultstring>` +
		`<detail><AccountFault><MessageID>42</MessageID><StatusCode>ERR</StatusCode></AccountFault></detail>` +
		`</soap:Fault></soap:Body></soap:Envelope>`

	emptyEnvelope = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body/></soap:Envelope>`

	request = `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body><GetBalance/></soap:Body></soap:Envelope>`
)

type balance struct {
	XMLName xml.Name `xml:"urn:accounts Balance"`
	Amount  string   `xml:"Amount"`
}

type accountFault struct {
	XMLName    xml.Name `xml:"AccountFault"`
	MessageID  string   `xml:"MessageID"`
	StatusCode string   `xml:"StatusCode"`
}

type captured struct {
	mu      sync.Mutex
	headers http.Header
	body    string
}

func (c *captured) get() (http.Header, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headers, c.body
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	cap := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cap.mu.Lock()
		cap.headers = r.Header.Clone()
		cap.body = string(body)
		cap.mu.Unlock()
		w.Header().Set("Content-Type", soap.SOAP11ContentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, cap
}

func TestNew(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrNoEndpoint)

	c, err := New("http://localhost/ws")
	require.NoError(t, err)
	assert.Equal(t, soap.SOAP11, c.version)
	assert.Equal(t, int64(MaxResponseSize), c.maxBody)
	assert.NotNil(t, c.resolver)
}

func TestCall_SOAP11Headers(t *testing.T) {
	srv, cap := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL, WithHeader("X-Api-Key", "abc"))
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)

	headers, body := cap.get()
	assert.Equal(t, request, body)
	assert.Equal(t, soap.SOAP11ContentType, headers.Get("Content-Type"))
	assert.Equal(t, `"urn:GetBalance"`, headers.Get("SOAPAction"))
	assert.Equal(t, "abc", headers.Get("X-Api-Key"))
	assert.Equal(t, resp.RequestID, headers.Get(RequestIDHeader))
	_, err = uuid.Parse(resp.RequestID)
	assert.NoError(t, err)
	assert.Empty(t, headers.Get("Authorization"))
}

func TestCall_SOAP12Headers(t *testing.T) {
	srv, cap := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL, WithVersion(soap.SOAP12))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)

	headers, _ := cap.get()
	assert.Equal(t, `application/soap+xml; charset=utf-8; action="urn:GetBalance"`, headers.Get("Content-Type"))
	assert.Empty(t, headers.Get("SOAPAction"))
}

func TestCall_RawPayload(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, resp.Message)

	doc, ok := resp.Value.(*etree.Document)
	require.True(t, ok, "default unmarshaller returns the payload tree, got %T", resp.Value)
	assert.Equal(t, "Balance", doc.Root().Tag)
}

func TestCall_BoundPayload(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, okEnvelope)
	b := binding.NewBinder()
	require.NoError(t, b.Register(balance{}))

	c, err := New(srv.URL, WithUnmarshaller(b))
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)
	assert.Equal(t, "12.50", resp.Value.(*balance).Amount)
}

func TestCall_EmptyBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, emptyEnvelope)
	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:Ping", []byte(request), nil)
	require.NoError(t, err)
	assert.Nil(t, resp.Value)
}

func TestCall_UnboundPayload(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL, WithUnmarshaller(binding.NewBinder()))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	assert.ErrorIs(t, err, binding.ErrUnboundElement)
}

func TestCall_FaultGenericExtraction(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, faultEnvelope)
	c, err := New(srv.URL)
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	assert.Nil(t, resp)

	var fe *fault.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "MessageID: 42, StatusCode: ERR, DefaultMessage: ", fe.Message)

	var cf *soap.ClientFaultError
	require.True(t, errors.As(err, &cf))
	assert.Equal(t, "boom", cf.Message.Fault().Reason)
}

var errAccountLocked = errors.New("account locked")

func TestCall_FaultCustomDecoder(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, faultEnvelope)
	b := binding.NewBinder()
	require.NoError(t, b.Register(accountFault{}))

	var seen *accountFault
	dec := fault.FuncDecoder{
		Unmarshaller: b,
		Resolve: func(_ fault.Message, decoded any) error {
			seen = decoded.(*accountFault)
			return errAccountLocked
		},
	}
	c, err := New(srv.URL, WithResolver(fault.NewResolver(fault.WithDecoder(dec))))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	assert.ErrorIs(t, err, errAccountLocked)
	require.NotNil(t, seen)
	assert.Equal(t, "42", seen.MessageID)
}

func TestCall_FaultSeesAttachments(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, faultEnvelope)

	var got binding.Attachments
	dec := fault.FuncDecoder{
		Unmarshaller: binding.UnmarshalFunc(func(_ binding.Source, att binding.Attachments) (any, error) {
			got = att
			return nil, nil
		}),
	}
	c, err := New(srv.URL, WithResolver(fault.NewResolver(fault.WithDecoder(dec))))
	require.NoError(t, err)

	att := binding.MapAttachments{"part1": []byte("x")}
	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), att)
	require.Error(t, err)
	require.NotNil(t, got)
	data, ok := got.Attachment("part1")
	assert.True(t, ok)
	assert.Equal(t, []byte("x"), data)
}

func TestCall_HTTPErrorWithoutSOAP(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway, "upstream unavailable\n")
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.StatusCode)
	assert.Equal(t, "upstream unavailable", se.Body)
	assert.Contains(t, err.Error(), "502")
}

func TestCall_HTTPErrorWithEnvelope(t *testing.T) {
	srv, _ := newServer(t, http.StatusServiceUnavailable, okEnvelope)
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	var se *StatusError
	assert.True(t, errors.As(err, &se))
}

func TestCall_NotSOAP(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "<html>hello</html>")
	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse response")
}

func TestCall_ResponseTooLarge(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL, WithMaxResponseSize(16))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestCall_ContextCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Call(ctx, "urn:GetBalance", []byte(request), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCall_BearerToken(t *testing.T) {
	srv, cap := newServer(t, http.StatusOK, okEnvelope)
	src := NewJWTSource(config.JWTConfig{Secret: "s3cret", Issuer: "soapkit", Audience: "billing"})
	c, err := New(srv.URL, WithTokenSource(src))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)

	headers, _ := cap.get()
	raw, ok := strings.CutPrefix(headers.Get("Authorization"), "Bearer ")
	require.True(t, ok)

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte("s3cret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("billing"), jwt.WithIssuer("soapkit"))
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.NotEmpty(t, claims.ID)
}

type failingTokens struct{}

func (failingTokens) Token() (string, error) { return "", errors.New("vault sealed") }

func TestCall_TokenError(t *testing.T) {
	srv, cap := newServer(t, http.StatusOK, okEnvelope)
	c, err := New(srv.URL, WithTokenSource(failingTokens{}))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	assert.ErrorContains(t, err, "vault sealed")
	headers, _ := cap.get()
	assert.Nil(t, headers, "no request is sent without a token")
}

func TestJWTSource(t *testing.T) {
	_, err := NewJWTSource(config.JWTConfig{}).Token()
	assert.Error(t, err)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	src := NewJWTSource(config.JWTConfig{Secret: "k", Subject: "batch"})
	src.now = func() time.Time { return fixed }

	raw, err := src.Token()
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(raw, claims)
	require.NoError(t, err)
	assert.Equal(t, "batch", claims.Subject)
	assert.Equal(t, fixed.Add(DefaultTokenTTL).Unix(), claims.ExpiresAt.Unix())
	assert.Empty(t, claims.Audience)
}

const balanceStylesheet = `
version: 1
stripNamespaces: true
rules:
  - match: /LegacyBalance
    rename: Balance
  - match: //amt
    rename: Amount
`

type plainBalance struct {
	XMLName xml.Name `xml:"Balance"`
	Amount  string   `xml:"Amount"`
}

func TestNewFromConfig(t *testing.T) {
	srv, cap := newServer(t, http.StatusOK, `<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope">`+
		`<soap:Body><l:LegacyBalance xmlns:l="urn:legacy"><l:amt>3</l:amt></l:LegacyBalance></soap:Body></soap:Envelope>`)

	sheet := filepath.Join(t.TempDir(), "balance.yaml")
	require.NoError(t, os.WriteFile(sheet, []byte(balanceStylesheet), 0o600))

	cfg := config.Default()
	cfg.Endpoint = srv.URL
	cfg.SOAPVersion = "1.2"
	cfg.Headers = map[string]string{"X-Tenant": "t1"}
	cfg.Transform.Stylesheet = sheet
	cfg.Auth.JWT = &config.JWTConfig{Secret: "k"}

	b := binding.NewBinder()
	require.NoError(t, b.Register(plainBalance{}))

	c, err := NewFromConfig(cfg, b, nil)
	require.NoError(t, err)

	resp, err := c.Call(context.Background(), "urn:GetBalance", []byte(request), nil)
	require.NoError(t, err)
	assert.Equal(t, "3", resp.Value.(*plainBalance).Amount)

	headers, _ := cap.get()
	assert.Equal(t, "t1", headers.Get("X-Tenant"))
	assert.True(t, strings.HasPrefix(headers.Get("Content-Type"), soap.SOAP12ContentType))
	assert.True(t, strings.HasPrefix(headers.Get("Authorization"), "Bearer "))
}

func TestNewFromConfig_Errors(t *testing.T) {
	_, err := NewFromConfig(config.Default(), nil, nil)
	assert.ErrorIs(t, err, ErrNoEndpoint)

	cfg := config.Default()
	cfg.Endpoint = "http://localhost/ws"
	cfg.SOAPVersion = "9"
	_, err = NewFromConfig(cfg, nil, nil)
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Endpoint = "http://localhost/ws"
	cfg.Transform.Stylesheet = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = NewFromConfig(cfg, nil, nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
