package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3/client"
	"github.com/sicko7947/calcflow"
)

// InvocationPath is the invoke route of the Lambda runtime interface emulator.
// Every unit endpoint accepts POSTed request JSON on this path.
const InvocationPath = "/2015-03-31/functions/function/invocations"

// FunctionErrorHeader is set by Lambda-style runtimes when the function itself failed
const FunctionErrorHeader = "X-Amz-Function-Error"

// HTTPConfig configures an HTTPInvoker
type HTTPConfig struct {
	// Endpoints maps a function name to the base URL of its runtime, e.g. http://localhost:9001
	Endpoints map[string]string

	// Timeout bounds a single invocation. Zero uses DefaultHTTPConfig.Timeout.
	Timeout time.Duration
}

// DefaultHTTPConfig provides invoker defaults
var DefaultHTTPConfig = HTTPConfig{
	Timeout: 5 * time.Second,
}

// HTTPInvoker invokes units over HTTP. It never retries.
type HTTPInvoker struct {
	client    *client.Client
	endpoints map[string]string
	timeout   time.Duration
}

var _ calcflow.Invoker = (*HTTPInvoker)(nil)

// invocationEnvelope covers both a unit result and a Lambda-style error payload
type invocationEnvelope struct {
	Result       *int64 `json:"result"`
	ErrorMessage string `json:"errorMessage"`
	ErrorType    string `json:"errorType"`
}

// NewHTTPInvoker creates an HTTP invoker for the configured endpoints
func NewHTTPInvoker(cfg HTTPConfig) (*HTTPInvoker, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, fmt.Errorf("no endpoints configured")
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for function, base := range cfg.Endpoints {
		endpoint, err := InvocationURL(base)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint for %s: %w", function, err)
		}
		endpoints[function] = endpoint
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultHTTPConfig.Timeout
	}

	return &HTTPInvoker{
		client:    client.New(),
		endpoints: endpoints,
		timeout:   timeout,
	}, nil
}

// InvocationURL turns a runtime base URL into its invoke URL.
// URLs already ending in InvocationPath are returned unchanged.
func InvocationURL(base string) (string, error) {
	base = strings.TrimSpace(base)
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in %s", u.Scheme, base)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %s", base)
	}

	if strings.HasSuffix(u.Path, InvocationPath) {
		return u.String(), nil
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + InvocationPath
	return u.String(), nil
}

// Endpoint returns the invoke URL used for function
func (i *HTTPInvoker) Endpoint(function string) (string, bool) {
	endpoint, ok := i.endpoints[function]
	return endpoint, ok
}

// Functions returns the configured function names, sorted
func (i *HTTPInvoker) Functions() []string {
	names := make([]string, 0, len(i.endpoints))
	for name := range i.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke posts req to the function's runtime and decodes its result.
// Non-2xx statuses, function errors, undecodable bodies, timeouts and
// connection failures are all returned as *calcflow.InvocationError.
func (i *HTTPInvoker) Invoke(ctx context.Context, function string, req calcflow.InvocationRequest) (calcflow.InvocationResult, error) {
	endpoint, ok := i.endpoints[function]
	if !ok {
		return calcflow.InvocationResult{}, calcflow.NewInvocationError(
			calcflow.ErrCodeNotFound,
			fmt.Sprintf("no endpoint configured for function %s", function),
		).WithFunction(function)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	resp, err := i.client.R().
		SetContext(ctx).
		SetJSON(req).
		Post(endpoint)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return calcflow.InvocationResult{}, calcflow.ToInvocationError(
				fmt.Errorf("invocation of %s aborted: %w", function, errors.Join(ctxErr, err)),
			).WithFunction(function)
		}
		return calcflow.InvocationResult{}, calcflow.WrapInvocationError(
			calcflow.ErrCodeTransport,
			fmt.Errorf("failed to invoke %s: %w", function, err),
		).WithFunction(function)
	}
	defer resp.Close()

	return decodeResponse(function, resp.StatusCode(), resp.Header(FunctionErrorHeader), resp.Body())
}

func decodeResponse(function string, status int, functionError string, body []byte) (calcflow.InvocationResult, error) {
	var envelope invocationEnvelope
	decodeErr := json.Unmarshal(body, &envelope)

	if status < 200 || status > 299 {
		ie := calcflow.NewInvocationError(
			calcflow.ErrCodeUpstreamStatus,
			fmt.Sprintf("function %s returned status %d", function, status),
		).WithFunction(function).WithStatusCode(status)
		if decodeErr == nil && envelope.ErrorMessage != "" {
			ie.WithDetails(map[string]interface{}{
				"errorMessage": envelope.ErrorMessage,
				"errorType":    envelope.ErrorType,
			})
		}
		return calcflow.InvocationResult{}, ie
	}

	if functionError != "" || (decodeErr == nil && envelope.ErrorMessage != "") {
		message := envelope.ErrorMessage
		if message == "" {
			message = functionError
		}
		return calcflow.InvocationResult{}, calcflow.NewInvocationError(
			calcflow.ErrCodeUnitError,
			fmt.Sprintf("function %s failed: %s", function, message),
		).WithFunction(function).WithStatusCode(status).WithDetails(map[string]interface{}{
			"errorType": envelope.ErrorType,
		})
	}

	if decodeErr != nil {
		return calcflow.InvocationResult{}, calcflow.WrapInvocationError(
			calcflow.ErrCodeDecode,
			fmt.Errorf("failed to decode response from %s: %w", function, decodeErr),
		).WithFunction(function).WithStatusCode(status)
	}

	if envelope.Result == nil {
		return calcflow.InvocationResult{}, calcflow.NewInvocationError(
			calcflow.ErrCodeDecode,
			fmt.Sprintf("response from %s has no result field", function),
		).WithFunction(function).WithStatusCode(status)
	}

	return calcflow.InvocationResult{Result: *envelope.Result}, nil
}
