package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client queries a seed registry for peers on start-up and on a periodic
// timer, per the node's peer discovery design.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(addr string) *Client {
	return &Client{baseURL: "http://" + addr, http: &http.Client{Timeout: 5 * time.Second}}
}

// Peers registers the node's port with the seed and returns the peer list
// it responds with.
func (c *Client) Peers(ctx context.Context, port int) ([]PeerEntry, error) {
	raw, err := json.Marshal(registerRequest{Port: port})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("seed registry: status %d", resp.StatusCode)
	}
	var entries []PeerEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, err
	}
	return entries, nil
}
