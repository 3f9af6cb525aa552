package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Client pins files to IPFS through the Pinata REST API. The returned hash
// is the content address the ledger stores; this service treats it as an
// opaque foreign key.
type Client struct {
	BaseURL   string
	APIKey    string
	APISecret string
	HTTP      *http.Client
}

// New creates a Pinata client.
func New(baseURL, apiKey, apiSecret string) *Client {
	return &Client{
		BaseURL:   baseURL,
		APIKey:    apiKey,
		APISecret: apiSecret,
		HTTP:      &http.Client{Timeout: 60 * time.Second},
	}
}

// PinResult holds the response from Pinata after a successful pin.
type PinResult struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinOptions struct {
	CidVersion int `json:"cidVersion"`
}

// PinFile uploads file bytes to Pinata and returns the content hash.
// A failed pin means the file is not submitted; the caller must not proceed
// to the ledger write.
func (c *Client) PinFile(ctx context.Context, data []byte, filename string) (*PinResult, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("pinning: create form file failed: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("pinning: write file failed: %w", err)
	}

	meta, _ := json.Marshal(pinMetadata{Name: "assignment-" + uuid.NewString()})
	_ = w.WriteField("pinataMetadata", string(meta))
	opts, _ := json.Marshal(pinOptions{CidVersion: 0})
	_ = w.WriteField("pinataOptions", string(opts))
	w.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return nil, fmt.Errorf("pinning: create request failed: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("pinata_api_key", c.APIKey)
	req.Header.Set("pinata_secret_api_key", c.APISecret)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pinning: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pinning: upload failed (%d): %s", resp.StatusCode, string(body))
	}

	var result PinResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("pinning: decode response failed: %w", err)
	}
	if result.IpfsHash == "" {
		return nil, fmt.Errorf("pinning: empty hash in response")
	}
	return &result, nil
}
