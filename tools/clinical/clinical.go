// Package clinical implements the external-API operations: clinical-trial
// registry search and drug-label search against their public HTTP endpoints.
package clinical

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/trialbridge/toolhost/host"
)

const (
	// DefaultRegistryBaseURL is the ClinicalTrials.gov v2 studies endpoint.
	DefaultRegistryBaseURL = "https://clinicaltrials.gov/api/v2/studies"
	// DefaultLabelBaseURL is the openFDA drug label endpoint.
	DefaultLabelBaseURL = "https://api.fda.gov/drug/label.json"

	defaultHTTPTimeout = 30 * time.Second
	defaultMaxItems    = 10
	labelResultLimit   = 5
)

// Config configures the upstream endpoints.
type Config struct {
	RegistryBaseURL string
	LabelBaseURL    string
	HTTPTimeout     time.Duration
}

// Client performs the outbound registry and label queries. One client is
// shared by both operations; the underlying http.Client handles pooling.
type Client struct {
	registryBaseURL string
	labelBaseURL    string
	http            *http.Client
}

// New builds a Client, applying endpoint and timeout defaults.
func New(cfg Config) *Client {
	registryURL := strings.TrimSpace(cfg.RegistryBaseURL)
	if registryURL == "" {
		registryURL = DefaultRegistryBaseURL
	}
	labelURL := strings.TrimSpace(cfg.LabelBaseURL)
	if labelURL == "" {
		labelURL = DefaultLabelBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		registryBaseURL: registryURL,
		labelBaseURL:    labelURL,
		http:            &http.Client{Timeout: timeout},
	}
}

// Operations returns the operation set this client serves.
func (c *Client) Operations() []host.Operation {
	return []host.Operation{
		{
			Name:        "search_clinical_trials",
			Description: "Search ClinicalTrials.gov database for clinical studies",
			Input: host.InputSchema{
				"query": {
					Type:        host.TypeString,
					Required:    true,
					Description: "Search query (e.g., disease name, intervention, sponsor)",
				},
				"max_items": {
					Type:        host.TypeNumber,
					Default:     defaultMaxItems,
					Description: "Maximum number of results to return (default: 10)",
				},
			},
			Handler: c.searchTrials,
		},
		{
			Name:        "search_fda_drugs",
			Description: "Search FDA drug database for drug labels and information",
			Input: host.InputSchema{
				"drug_name": {
					Type:        host.TypeString,
					Required:    true,
					Description: "Drug brand name to search for",
				},
			},
			Handler: c.searchLabels,
		},
	}
}

func (c *Client) searchTrials(ctx context.Context, args host.Args) (any, error) {
	query := args.String("query")
	maxItems := args.Int("max_items")

	params := url.Values{}
	params.Set("query.term", query)
	params.Set("pageSize", strconv.Itoa(maxItems))
	params.Set("format", "json")

	body, err := c.getJSON(ctx, c.registryBaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("query trial registry: %w", err)
	}

	return map[string]any{
		"query":   query,
		"count":   body["totalCount"],
		"studies": body["studies"],
	}, nil
}

func (c *Client) searchLabels(ctx context.Context, args host.Args) (any, error) {
	drugName := args.String("drug_name")

	params := url.Values{}
	params.Set("search", fmt.Sprintf("openfda.brand_name:%q", drugName))
	params.Set("limit", strconv.Itoa(labelResultLimit))

	body, err := c.getJSON(ctx, c.labelBaseURL, params)
	if err != nil {
		return nil, fmt.Errorf("query drug labels: %w", err)
	}

	return map[string]any{
		"drug_name": drugName,
		"results":   body["results"],
	}, nil
}

func (c *Client) getJSON(ctx context.Context, baseURL string, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := strings.TrimSpace(string(payload))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, message)
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return body, nil
}

// Name identifies the client's health probe.
func (c *Client) Name() string { return "clinical-api" }

// Check reports whether the trial registry endpoint is reachable. Any HTTP
// response counts as reachable; only transport failures are errors.
func (c *Client) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.registryBaseURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

var _ host.Probe = (*Client)(nil)
