package feeaccount

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
)

// CreatePath is the fee server's account-creation endpoint
const CreatePath = "/api/createFeeATA"

type createRequest struct {
	FeeRecipient string `json:"feeRecipient"`
	FeeMint      string `json:"feeMint"`
}

type createResponse struct {
	Success     bool   `json:"success"`
	ATA         string `json:"ata,omitempty"`
	IsToken2022 bool   `json:"isToken2022"`
	Created     bool   `json:"created"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RemoteCreator asks the fee server to create fee accounts
type RemoteCreator struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteCreator creates a client for the fee server at baseURL
func NewRemoteCreator(baseURL string, timeout time.Duration) *RemoteCreator {
	return &RemoteCreator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateFeeAccount requests creation and returns the account address
func (c *RemoteCreator) CreateFeeAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.PublicKey, error) {
	payload, err := json.Marshal(createRequest{FeeRecipient: owner.String(), FeeMint: mint.String()})
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+CreatePath, bytes.NewReader(payload))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("fee server request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to read fee server response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return solana.PublicKey{}, fmt.Errorf("fee server error (status %d, %s): %s", resp.StatusCode, errResp.Code, errResp.Message)
		}
		return solana.PublicKey{}, fmt.Errorf("fee server returned status code %d", resp.StatusCode)
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to decode fee server response: %w", err)
	}
	if !out.Success || out.ATA == "" {
		return solana.PublicKey{}, fmt.Errorf("fee server did not return an account")
	}

	addr, err := solana.PublicKeyFromBase58(out.ATA)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("fee server returned invalid account: %w", err)
	}
	return addr, nil
}
