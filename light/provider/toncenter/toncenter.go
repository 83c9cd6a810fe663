// Package toncenter fetches masterchain signatures and block ids from a
// toncenter HTTP API v2 endpoint over JSON-RPC.
package toncenter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tlbytes "github.com/tonlight/tonlight/libs/bytes"
	"github.com/tonlight/tonlight/libs/log"
	"github.com/tonlight/tonlight/light/provider"
	"github.com/tonlight/tonlight/types"
)

const (
	// DefaultEndpoint is the public mainnet JSON-RPC endpoint.
	DefaultEndpoint = "https://toncenter.com/api/v2/jsonRPC"

	defaultTimeout = 10 * time.Second

	apiKeyHeader = "X-API-Key"
)

// Option sets a parameter for the client.
type Option func(*Client)

// APIKey sets the key sent in the X-API-Key header.
func APIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// HTTPClient replaces the underlying http.Client.
func HTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// Timeout bounds every request. Default: 10s.
func Timeout(d time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// Logger sets a logger for the client.
func Logger(l log.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client talks to a toncenter endpoint. It implements
// provider.SignatureSource and provider.ChainIndex. Requests are never
// retried.
//
// Client is safe for concurrent use by multiple goroutines.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   log.Logger

	nextID uint64
}

var (
	_ provider.SignatureSource = (*Client)(nil)
	_ provider.ChainIndex      = (*Client)(nil)
)

// New returns a client for endpoint. If endpoint is empty, DefaultEndpoint is
// used.
func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultTimeout},
		logger:   log.NewNopLogger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) String() string {
	return fmt.Sprintf("toncenter{%s}", c.endpoint)
}

type blockIDExt struct {
	Workchain int32  `json:"workchain"`
	Shard     string `json:"shard"`
	SeqNo     uint32 `json:"seqno"`
	RootHash  string `json:"root_hash"`
	FileHash  string `json:"file_hash"`
}

func (b blockIDExt) toBlockID() (types.BlockID, error) {
	shard, err := strconv.ParseInt(b.Shard, 10, 64)
	if err != nil {
		return types.BlockID{}, fmt.Errorf("bad shard %q: %w", b.Shard, err)
	}
	var root, file tlbytes.Base64Bytes
	if err := root.UnmarshalText([]byte(b.RootHash)); err != nil {
		return types.BlockID{}, fmt.Errorf("bad root hash: %w", err)
	}
	if err := file.UnmarshalText([]byte(b.FileHash)); err != nil {
		return types.BlockID{}, fmt.Errorf("bad file hash: %w", err)
	}
	id := types.BlockID{
		Workchain: b.Workchain,
		Shard:     shard,
		SeqNo:     b.SeqNo,
		RootHash:  tlbytes.HexBytes(root),
		FileHash:  tlbytes.HexBytes(file),
	}
	if err := id.ValidateBasic(); err != nil {
		return types.BlockID{}, err
	}
	return id, nil
}

// SignaturesFor implements provider.SignatureSource using
// getMasterchainBlockSignatures.
func (c *Client) SignaturesFor(ctx context.Context, seqno uint32) ([]types.SignatureClaim, error) {
	var res struct {
		ID         blockIDExt             `json:"id"`
		Signatures []types.SignatureClaim `json:"signatures"`
	}
	if err := c.call(ctx, "getMasterchainBlockSignatures", map[string]interface{}{"seqno": seqno}, &res); err != nil {
		return nil, err
	}
	if res.ID.SeqNo != 0 && res.ID.SeqNo != seqno {
		return nil, provider.ErrBadBlock{
			Reason: fmt.Errorf("asked signatures for %d, got %d", seqno, res.ID.SeqNo),
		}
	}
	return res.Signatures, nil
}

// ChainTip returns the last masterchain block using getMasterchainInfo.
func (c *Client) ChainTip(ctx context.Context) (types.BlockID, error) {
	var res struct {
		Last blockIDExt `json:"last"`
	}
	if err := c.call(ctx, "getMasterchainInfo", map[string]interface{}{}, &res); err != nil {
		return types.BlockID{}, err
	}
	id, err := res.Last.toBlockID()
	if err != nil {
		return types.BlockID{}, provider.ErrBadBlock{Reason: err}
	}
	return id, nil
}

// BlockBySeqno resolves a masterchain seqno to a full block id using
// lookupBlock.
func (c *Client) BlockBySeqno(ctx context.Context, seqno uint32) (types.BlockID, error) {
	var res blockIDExt
	params := map[string]interface{}{
		"workchain": types.MasterchainID,
		"shard":     strconv.FormatInt(types.ShardAll, 10),
		"seqno":     seqno,
	}
	if err := c.call(ctx, "lookupBlock", params, &res); err != nil {
		return types.BlockID{}, err
	}
	id, err := res.toBlockID()
	if err != nil {
		return types.BlockID{}, provider.ErrBadBlock{Reason: err}
	}
	if id.SeqNo != seqno {
		return types.BlockID{}, provider.ErrBadBlock{
			Reason: fmt.Errorf("asked block %d, got %d", seqno, id.SeqNo),
		}
	}
	return id, nil
}

type rpcRequest struct {
	ID      string                 `json:"id"`
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
}

type rpcResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
	Code   int             `json:"code"`
	ID     interface{}     `json:"id"`
}

// RPCError is an "ok": false answer of the endpoint.
type RPCError struct {
	Code    int
	Message string
}

func (e RPCError) Error() string {
	return fmt.Sprintf("toncenter error %d: %s", e.Code, e.Message)
}

func (c *Client) call(ctx context.Context, method string, params map[string]interface{}, result interface{}) error {
	id := strconv.FormatUint(atomic.AddUint64(&c.nextID, 1), 10)
	body, err := json.Marshal(rpcRequest{ID: id, JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", provider.ErrNoResponse, method, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", provider.ErrNoResponse, method, err)
	}
	c.logger.Debug("toncenter call", "method", method, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusGatewayTimeout {
		return fmt.Errorf("%w: %s: http status %d", provider.ErrNoResponse, method, resp.StatusCode)
	}

	var r rpcResponse
	if err := json.Unmarshal(respBytes, &r); err != nil {
		if resp.StatusCode == http.StatusGatewayTimeout {
			return fmt.Errorf("%w: %s: http status %d", provider.ErrNoResponse, method, resp.StatusCode)
		}
		return provider.ErrBadBlock{Reason: fmt.Errorf("decoding %s response: %w", method, err)}
	}
	if !r.OK {
		return rpcErrorToProviderError(RPCError{Code: r.Code, Message: r.Error})
	}
	if r.ID != nil && fmt.Sprint(r.ID) != id {
		return provider.ErrBadBlock{Reason: fmt.Errorf("response id %v does not match request id %s", r.ID, id)}
	}
	if err := json.Unmarshal(r.Result, result); err != nil {
		return provider.ErrBadBlock{Reason: fmt.Errorf("decoding %s result: %w", method, err)}
	}
	return nil
}

func rpcErrorToProviderError(e RPCError) error {
	msg := strings.ToLower(e.Message)
	switch {
	case e.Code == http.StatusNotFound,
		strings.Contains(msg, "not in db"),
		strings.Contains(msg, "not found"):
		return fmt.Errorf("%w: %v", provider.ErrBlockNotFound, e)
	case e.Code == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %v", provider.ErrNoResponse, e)
	default:
		return provider.ErrBadBlock{Reason: e}
	}
}
