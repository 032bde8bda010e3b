package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RPCClient implements Gateway over the contract service's JSON-RPC endpoint.
type RPCClient struct {
	Endpoint        string
	ContractAddress string
	Client          *http.Client
}

// NewRPCClient builds a gateway for the given endpoint and contract.
func NewRPCClient(endpoint, contractAddress string) *RPCClient {
	return &RPCClient{
		Endpoint:        endpoint,
		ContractAddress: contractAddress,
		Client:          &http.Client{Timeout: 30 * time.Second},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcErrorBody   `json:"error,omitempty"`
}

// executionReverted is the JSON-RPC error code for a reverted call.
const executionReverted = 3

func (c *RPCClient) call(ctx context.Context, method string, out interface{}, params ...interface{}) error {
	args := append([]interface{}{c.ContractAddress}, params...)
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: args})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("chain: decode %s response: %w", method, err)
	}
	if decoded.Error != nil {
		if decoded.Error.Code == executionReverted {
			reason := decoded.Error.Data
			if reason == "" {
				reason = decoded.Error.Message
			}
			return &RevertError{Reason: reason}
		}
		return fmt.Errorf("chain: %s: %s", method, decoded.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(decoded.Result, out); err != nil {
			return fmt.Errorf("chain: decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *RPCClient) httpClient() *http.Client {
	if c.Client != nil {
		return c.Client
	}
	return http.DefaultClient
}

func (c *RPCClient) callTx(ctx context.Context, method string, params ...interface{}) (TxResult, error) {
	var result struct {
		Hash string `json:"hash"`
	}
	if err := c.call(ctx, method, &result, params...); err != nil {
		return TxResult{}, err
	}
	return TxResult{Hash: result.Hash}, nil
}

func (c *RPCClient) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := c.call(ctx, "cert_paused", &paused)
	return paused, err
}

func (c *RPCClient) HasRole(ctx context.Context, role, address string) (bool, error) {
	var has bool
	err := c.call(ctx, "cert_hasRole", &has, role, address)
	return has, err
}

func (c *RPCClient) GrantRole(ctx context.Context, role, address string) (TxResult, error) {
	return c.callTx(ctx, "cert_grantRole", role, address)
}

func (c *RPCClient) RevokeRole(ctx context.Context, role, address string) (TxResult, error) {
	return c.callTx(ctx, "cert_revokeRole", role, address)
}

func (c *RPCClient) IssueCertificate(ctx context.Context, certificateNumber, certificateHash string) (TxResult, error) {
	return c.callTx(ctx, "cert_issueCertificate", certificateNumber, certificateHash)
}

func (c *RPCClient) IssueBatchOfCertificates(ctx context.Context, root string) (TxResult, error) {
	return c.callTx(ctx, "cert_issueBatchOfCertificates", root)
}

func (c *RPCClient) VerifyCertificateByID(ctx context.Context, certificateNumber string) (bool, error) {
	var valid bool
	err := c.call(ctx, "cert_verifyCertificateById", &valid, certificateNumber)
	return valid, err
}

func (c *RPCClient) VerifyCertificateInBatch(ctx context.Context, batchIndex int, leafHash string, proof []string) (bool, error) {
	var valid bool
	err := c.call(ctx, "cert_verifyCertificateInBatch", &valid, batchIndex, leafHash, proof)
	return valid, err
}

func (c *RPCClient) RootLength(ctx context.Context) (int, error) {
	var length int
	err := c.call(ctx, "cert_getRootLength", &length)
	return length, err
}
