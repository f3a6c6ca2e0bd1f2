package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/somechain-network/node/consensus"
)

const (
	connectTimeout = 5 * time.Second
	sendTimeout    = 1 * time.Second
)

// PeerClient calls another node's peer RPC endpoints over HTTP. Dialing is
// bounded by connectTimeout (5s) and each whole request, dial included, by
// connectTimeout+sendTimeout (6s), so a slow or dead peer never blocks
// gossip or sync for longer than that. Sending and receiving have no
// separate bound of their own within that total.
type PeerClient struct {
	baseURL string
	http    *http.Client
}

func NewPeerClient(addr string) *PeerClient {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &PeerClient{
		baseURL: "http://" + addr,
		http: &http.Client{
			Timeout: connectTimeout + sendTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
	}
}

func (c *PeerClient) post(ctx context.Context, path string, reqBody, respBody interface{}) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout+sendTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer rpc %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(respBody)
}

func (c *PeerClient) Greet(ctx context.Context, port, version, blockHeight int) (GreetResponse, error) {
	var resp GreetResponse
	err := c.post(ctx, "/greet", GreetRequest{Port: port, Version: version, BlockHeight: blockHeight}, &resp)
	return resp, err
}

func (c *PeerClient) GetBlock(ctx context.Context, hash consensus.Hash) (*consensus.Block, bool, error) {
	var resp GetBlockResponse
	if err := c.post(ctx, "/getblock", GetBlockRequest{HeaderHash: string(hash)}, &resp); err != nil {
		return nil, false, err
	}
	if !resp.Found {
		return nil, false, nil
	}
	raw, err := hex.DecodeString(resp.BlockHex)
	if err != nil {
		return nil, false, err
	}
	block, err := consensus.ParseBlock(raw)
	if err != nil {
		return nil, false, err
	}
	return block, true, nil
}

func (c *PeerClient) CheckBlock(ctx context.Context, hash consensus.Hash) (bool, error) {
	var resp CheckBlockResponse
	err := c.post(ctx, "/checkblock", CheckBlockRequest{HeaderHash: string(hash)}, &resp)
	return resp.OnActiveChain, err
}

func (c *PeerClient) GetBlockHashes(ctx context.Context, myHeight int) ([]consensus.Hash, error) {
	var resp GetBlockHashesResponse
	if err := c.post(ctx, "/getblockhashes", GetBlockHashesRequest{MyHeight: myHeight}, &resp); err != nil {
		return nil, err
	}
	out := make([]consensus.Hash, len(resp.Hashes))
	for i, h := range resp.Hashes {
		out[i] = consensus.Hash(h)
	}
	return out, nil
}

func (c *PeerClient) NewBlock(ctx context.Context, block *consensus.Block) (AckResponse, error) {
	var resp AckResponse
	hexBlock := hex.EncodeToString(consensus.CanonicalBlock(block))
	err := c.post(ctx, "/newblock", NewBlockRequest{BlockHex: hexBlock}, &resp)
	return resp, err
}

func (c *PeerClient) NewTransaction(ctx context.Context, tx *consensus.Transaction) (AckResponse, error) {
	var resp AckResponse
	hexTx := hex.EncodeToString(consensus.CanonicalTransaction(tx))
	err := c.post(ctx, "/newtransaction", NewTransactionRequest{TransactionHex: hexTx}, &resp)
	return resp, err
}
