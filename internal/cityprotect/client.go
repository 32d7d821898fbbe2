package cityprotect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/stonybrain/cityprotect-api/internal/incident"
)

const defaultEndpoint = "https://ce-portal-service.commandcentral.com/api/v1.0/public/incidents"

// maxPages caps the pagination loop; the portal's termination contract is not
// verifiable from outside, so never trust it to stop on its own.
const maxPages = 20

// isoMillis matches the timestamp format the portal expects in request windows.
const isoMillis = "2006-01-02T15:04:05.000Z"

// portalHeaders mimic a browser session on the public portal; the endpoint
// rejects requests without them.
var portalHeaders = map[string]string{
	"content-type":    "application/json",
	"accept":          "application/json",
	"origin":          "https://www.cityprotect.com",
	"referer":         "https://www.cityprotect.com/",
	"user-agent":      "Mozilla/5.0",
	"accept-language": "en-US,en;q=0.9",
}

// Client fetches public incident records for the Redding query region.
type Client struct {
	endpoint   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a portal client. The http.Client carries the outbound
// timeout; the circuit breaker sheds load after repeated upstream failures
// (there are deliberately no retries).
func NewClient(httpClient *http.Client) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "cityprotect",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		endpoint:   defaultEndpoint,
		httpClient: httpClient,
		breaker:    cb,
	}
}

type apiResponse struct {
	Result struct {
		List struct {
			Incidents []incident.RawIncident `json:"incidents"`
		} `json:"list"`
		// RequestData, when present, is an opaque continuation object to be
		// resubmitted verbatim as the next request body.
		RequestData map[string]any `json:"requestData"`
	} `json:"result"`
}

// FetchWindow retrieves all raw incidents in [from, to], following the
// portal's pagination protocol. Continuation signatures are de-duplicated to
// guard against a non-terminating loop.
func (c *Client) FetchWindow(ctx context.Context, from, to time.Time) ([]incident.RawIncident, error) {
	body := baseRequestBody()
	pm := body["propertyMap"].(map[string]any)
	pm["fromDate"] = from.UTC().Format(isoMillis)
	pm["toDate"] = to.UTC().Format(isoMillis)

	seen := make(map[string]bool)
	var all []incident.RawIncident

	for page := 0; page < maxPages; page++ {
		resp, err := c.post(ctx, body)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Result.List.Incidents...)

		rd := resp.Result.RequestData
		if rd == nil {
			break
		}
		sig := continuationSignature(rd)
		if seen[sig] {
			log.Printf("portal repeated continuation %q; stopping pagination", sig)
			break
		}
		seen[sig] = true
		body = rd
	}

	return all, nil
}

// RawBody performs a single fetch and returns the status plus a bounded body
// snippet, for the debug passthrough endpoint.
func (c *Client) RawBody(ctx context.Context, from, to time.Time) (int, []byte, error) {
	body := baseRequestBody()
	pm := body["propertyMap"].(map[string]any)
	pm["fromDate"] = from.UTC().Format(isoMillis)
	pm["toDate"] = to.UTC().Format(isoMillis)

	resp, err := c.do(ctx, body)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	snippet, err := io.ReadAll(io.LimitReader(resp.Body, 2000))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read portal body: %w", err)
	}
	return resp.StatusCode, snippet, nil
}

func (c *Client) post(ctx context.Context, body map[string]any) (*apiResponse, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.do(ctx, body)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read portal response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("portal status %d: %.200s", resp.StatusCode, data)
		}

		var parsed apiResponse
		if err := json.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("invalid JSON from portal (status %d): %.200s", resp.StatusCode, data)
		}
		return &parsed, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*apiResponse), nil
}

func (c *Client) do(ctx context.Context, body map[string]any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal portal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create portal request: %w", err)
	}
	for k, v := range portalHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("portal request: %w", err)
	}
	return resp, nil
}

// continuationSignature keys a continuation on offset plus date window, the
// only fields that should advance between pages.
func continuationSignature(rd map[string]any) string {
	var fromDate, toDate any
	if pm, ok := rd["propertyMap"].(map[string]any); ok {
		fromDate = pm["fromDate"]
		toDate = pm["toDate"]
	}
	return fmt.Sprintf("%v|%v|%v", rd["offset"], fromDate, toDate)
}

// baseRequestBody is the fixed Redding query: bounding polygon, agency and
// category filters, and paging defaults used by the public portal.
func baseRequestBody() map[string]any {
	return map[string]any{
		"limit":  2000,
		"offset": 0,
		"geoJson": map[string]any{
			"type": "Polygon",
			"coordinates": []any{[]any{
				[]any{-122.20872933, 40.37101482},
				[]any{-122.55479867, 40.37101482},
				[]any{-122.55479867, 40.77626157},
				[]any{-122.20872933, 40.77626157},
				[]any{-122.20872933, 40.37101482},
			}},
		},
		"projection": true,
		"propertyMap": map[string]any{
			"pageSize":     "2000",
			"zoomLevel":    "11",
			"latitude":     "40.573945",
			"longitude":    "-122.381764",
			"days":         "1,2,3,4,5,6,7",
			"startHour":    "0",
			"endHour":      "24",
			"timezone":     "+00:00",
			"relativeDate": "custom",
			"id":           "5dfab4da933cf80011f565bc",
			"agencyIds":    "112398,112005,ci.anderson.ca.us,cityofredding.org",
			"parentIncidentTypeIds": "149,150,148,8,97,104,165,98,100,179,178," +
				"180,101,99,103,163,168,166,12,161,14,16,15",
		},
	}
}
