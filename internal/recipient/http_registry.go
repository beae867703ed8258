package recipient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// HTTPRegistry asks a recipient registry for ?token=&network= and expects {"address","tag"}.
type HTTPRegistry struct {
	endpoint string
	client   *http.Client
}

var _ Registry = (*HTTPRegistry)(nil)

func NewHTTPRegistry(endpoint string, client *http.Client) *HTTPRegistry {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRegistry{endpoint: endpoint, client: client}
}

type registryResponse struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
}

func (r *HTTPRegistry) Lookup(ctx context.Context, token, network string) (Binding, error) {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return Binding{}, fmt.Errorf("parse registry url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	if network != "" {
		q.Set("network", network)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Binding{}, fmt.Errorf("build registry request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Binding{}, fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Binding{}, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var body registryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16*1024)).Decode(&body); err != nil {
		return Binding{}, fmt.Errorf("decode registry response: %w", err)
	}
	if body.Address == "" {
		return Binding{}, fmt.Errorf("registry response has no address for %s", token)
	}

	return Binding{Token: token, Network: network, Address: body.Address, Tag: body.Tag}, nil
}
