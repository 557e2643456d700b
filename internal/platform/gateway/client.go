package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fatflowers/payportal/pkg/logctx"
	"github.com/fatflowers/payportal/pkg/metrics"
)

const maxResponseBytes = 1 << 20

// Request is one outbound call to a gateway endpoint.
type Request struct {
	Backend   string
	Operation string
	URL       string
	Encoding  Encoding
	Headers   http.Header
	Data      map[string]any
}

// Response is a gateway answer that reached us, successful or not.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx answer. Anything else is treated like a transport failure.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Payload decodes a JSON object body, keeping numbers as json.Number.
func (r *Response) Payload() (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}
	return out, nil
}

// Client posts requests to gateways.
type Client struct {
	http    *http.Client
	log     *zap.SugaredLogger
	metrics *metrics.PaymentMetrics
}

func NewClient(hc *http.Client, log *zap.SugaredLogger, m *metrics.PaymentMetrics) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{http: hc, log: log, metrics: m}
}

// Post sends req. A transport failure returns an error wrapping ErrGatewayUnavailable;
// an HTTP answer is always returned as a Response, whatever its status.
func (c *Client) Post(ctx context.Context, req *Request) (resp *Response, err error) {
	ctx, span := otel.Tracer("payportal/gateway").Start(ctx, "gateway."+req.Operation)
	span.SetAttributes(
		attribute.String("gateway.backend", req.Backend),
		attribute.String("gateway.operation", req.Operation),
		attribute.String("http.url", req.URL),
	)
	start := time.Now()
	defer func() {
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "transport_error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case !resp.OK():
			outcome = "not_ok"
			span.SetStatus(codes.Error, fmt.Sprintf("http %d", resp.StatusCode))
		}
		if resp != nil {
			span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		}
		span.End()
		elapsed := metrics.MillisecondsSince(start)
		c.metrics.ObserveGatewayRequest(req.Backend, req.Operation, outcome, elapsed)
		logctx.FromCtx(ctx, c.log).Infow("gateway_request",
			"backend", req.Backend,
			"operation", req.Operation,
			"outcome", outcome,
			"elapsed_ms", int64(elapsed),
		)
	}()

	body, contentType, err := encodeBody(req.Encoding, req.Data)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGatewayUnavailable, err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

func encodeBody(enc Encoding, data map[string]any) (io.Reader, string, error) {
	switch enc {
	case EncodingJSON:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, "", fmt.Errorf("encode gateway request: %w", err)
		}
		return bytes.NewReader(b), "application/json", nil
	case EncodingForm, "":
		form := url.Values{}
		for k, v := range data {
			switch t := v.(type) {
			case nil:
				continue
			case []string:
				for _, s := range t {
					form.Add(k, s)
				}
			default:
				form.Set(k, ValueString(v))
			}
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", fmt.Errorf("unsupported encoding %q", enc)
	}
}
