package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pkrouting/pkg/dberrors"
	"pkrouting/pkg/types"
)

// HTTPSource loads partition maps from another pkrouting node's
// /api/containers/{container}/pkranges endpoint.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type pkRangesResponse struct {
	Status     string      `json:"status"`
	Error      string      `json:"error"`
	Partitions []Partition `json:"partitions"`
}

func (s *HTTPSource) LoadPartitions(ctx context.Context, container types.ContainerID) ([]Partition, error) {
	endpoint := s.baseURL + "/api/containers/" + url.PathEscape(string(container)) + "/pkranges"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute GET request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("container %s: %w", container, dberrors.ErrPartitionNotFound)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("GET %s status=%d body=%s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out pkRangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Partitions, nil
}
