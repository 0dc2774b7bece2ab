package platforms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/faizanprofitpilot/zapsocial/internal/calllog"
)

// GraphCaller performs Graph API requests for the adapters that ride it
// (Facebook pages and Instagram business accounts). Every request is recorded
// and error envelopes are mapped onto the Kind taxonomy.
type GraphCaller struct {
	ProviderID string
	BaseURL    string
	HTTPClient *http.Client
	Recorder   calllog.Recorder
}

// Do performs one Graph API request. GET parameters go in the query string,
// everything else is form-encoded.
func (g *GraphCaller) Do(ctx context.Context, op, method, path string, params url.Values, out any) error {
	endpoint := g.BaseURL + path

	var req *http.Request
	var err error
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, endpoint+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	start := time.Now()
	resp, err := g.HTTPClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		g.Recorder.Record(calllog.Call{
			Provider: g.ProviderID, Endpoint: path, Method: method,
			Success: false, Duration: duration, Err: err,
		})
		return NewTransient(g.ProviderID, op, "request failed", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	var callErr error
	if !success {
		callErr = fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	g.Recorder.Record(calllog.Call{
		Provider: g.ProviderID, Endpoint: path, Method: method,
		StatusCode: resp.StatusCode, Success: success, Duration: duration, Err: callErr,
	})

	if !success {
		var envelope struct {
			Error GraphError `json:"error"`
		}
		if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
			return MapGraphError(g.ProviderID, op, resp.StatusCode, &envelope.Error)
		}
		if resp.StatusCode == 429 || resp.StatusCode >= 500 {
			return NewTransient(g.ProviderID, op, fmt.Sprintf("status %d", resp.StatusCode), nil)
		}
		return NewPermanent(g.ProviderID, op, fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}
