package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrUnavailable means the RPC endpoint could not be reached after retries.
// Callers should treat it as transient and retry the whole operation.
var ErrUnavailable = errors.New("ledger: rpc unavailable")

// Assignment mirrors the contract-resident assignment record.
type Assignment struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	Deadline    int64  `json:"deadline"`
	IsActive    bool   `json:"isActive"`
}

// Submission mirrors the contract-resident submission record. Student is
// the submitting wallet, lower-cased on decode.
type Submission struct {
	AssignmentID uint64 `json:"assignmentId"`
	Student      string `json:"walletAddress"`
	FileHash     string `json:"fileHash"`
	Timestamp    int64  `json:"timestamp"`
}

// Client reads the assignment contract over JSON-RPC eth_call. The contract
// is ground truth; this client never writes (submission and authorization
// transactions are signed client-side).
type Client struct {
	RPCURL   string
	Contract string
	HTTP     *http.Client
	Skip     bool
	retries  int
}

// New creates a client. With skip set, all reads return canned records so
// the rest of the stack runs without a chain endpoint.
func New(rpcURL, contractAddress string, skip bool, retries int) *Client {
	if retries <= 0 {
		retries = 3
	}
	return &Client{
		RPCURL:   rpcURL,
		Contract: contractAddress,
		Skip:     skip,
		retries:  retries,
		HTTP:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Teacher returns the current teacher wallet.
func (c *Client) Teacher(ctx context.Context) (string, error) {
	if c.Skip {
		return "0x00000000000000000000000000000000000000aa", nil
	}
	data, err := c.call(ctx, encodeCall("teacher()"))
	if err != nil {
		return "", err
	}
	return wordAddress(data, 0)
}

// AssignmentCount returns the number of assignments on the ledger.
func (c *Client) AssignmentCount(ctx context.Context) (uint64, error) {
	if c.Skip {
		return uint64(len(mockAssignments)), nil
	}
	data, err := c.call(ctx, encodeCall("assignmentCount()"))
	if err != nil {
		return 0, err
	}
	return wordUint64(data, 0)
}

// AssignmentAt returns the assignment at a 1-based ledger index.
func (c *Client) AssignmentAt(ctx context.Context, i uint64) (Assignment, error) {
	if c.Skip {
		if i == 0 || i > uint64(len(mockAssignments)) {
			return Assignment{}, fmt.Errorf("ledger: assignment index %d out of range", i)
		}
		return mockAssignments[i-1], nil
	}
	data, err := c.call(ctx, encodeCall("assignments(uint256)", encodeUint64(i)))
	if err != nil {
		return Assignment{}, err
	}
	return decodeAssignment(data)
}

// SubmissionCount returns the number of submissions on the ledger.
func (c *Client) SubmissionCount(ctx context.Context) (uint64, error) {
	if c.Skip {
		return uint64(len(mockSubmissions)), nil
	}
	data, err := c.call(ctx, encodeCall("getSubmissionCount()"))
	if err != nil {
		return 0, err
	}
	return wordUint64(data, 0)
}

// SubmissionAt returns the submission at a 1-based ledger index. Index 0 is
// never assigned by the contract.
func (c *Client) SubmissionAt(ctx context.Context, i uint64) (Submission, error) {
	if c.Skip {
		if i == 0 || i > uint64(len(mockSubmissions)) {
			return Submission{}, fmt.Errorf("ledger: submission index %d out of range", i)
		}
		return mockSubmissions[i-1], nil
	}
	data, err := c.call(ctx, encodeCall("submissions(uint256)", encodeUint64(i)))
	if err != nil {
		return Submission{}, err
	}
	return decodeSubmission(data)
}

func decodeAssignment(data []byte) (Assignment, error) {
	id, err := wordUint64(data, 0)
	if err != nil {
		return Assignment{}, err
	}
	description, err := dynamicString(data, 1)
	if err != nil {
		return Assignment{}, err
	}
	deadline, err := wordUint64(data, 2)
	if err != nil {
		return Assignment{}, err
	}
	active, err := wordBool(data, 3)
	if err != nil {
		return Assignment{}, err
	}
	return Assignment{ID: id, Description: description, Deadline: int64(deadline), IsActive: active}, nil
}

func decodeSubmission(data []byte) (Submission, error) {
	assignmentID, err := wordUint64(data, 0)
	if err != nil {
		return Submission{}, err
	}
	student, err := wordAddress(data, 1)
	if err != nil {
		return Submission{}, err
	}
	fileHash, err := dynamicString(data, 2)
	if err != nil {
		return Submission{}, err
	}
	ts, err := wordUint64(data, 3)
	if err != nil {
		return Submission{}, err
	}
	// wordAddress yields lower-case hex, so Student is already a
	// normalized wallet key.
	return Submission{
		AssignmentID: assignmentID,
		Student:      student,
		FileHash:     fileHash,
		Timestamp:    int64(ts),
	}, nil
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result string    `json:"result"`
	Error  *rpcError `json:"error"`
}

// call performs eth_call with bounded retry and backoff. RPC endpoints are
// flaky; transport failures and 5xx responses are retried, contract-level
// errors are not.
func (c *Client) call(ctx context.Context, callData []byte) ([]byte, error) {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "eth_call",
		Params: []interface{}{
			map[string]string{"to": c.Contract, "data": hexData(callData)},
			"latest",
		},
	})
	if err != nil {
		return nil, err
	}

	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}

		result, retryable, err := c.doCall(ctx, payload)
		if err == nil {
			return result, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doCall(ctx context.Context, payload []byte) (result []byte, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.RPCURL, bytes.NewReader(payload))
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return nil, true, fmt.Errorf("rpc status %s: %s", resp.Status, string(body))
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("ledger: rpc status %s: %s", resp.Status, string(body))
	}

	var out rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, false, fmt.Errorf("ledger: decode rpc response: %w", err)
	}
	if out.Error != nil {
		return nil, false, fmt.Errorf("ledger: rpc error %d: %s", out.Error.Code, out.Error.Message)
	}
	data, err := parseHex(out.Result)
	if err != nil {
		return nil, false, err
	}
	return data, false, nil
}

// Canned ledger state for CHAIN_SKIP mode.
var mockAssignments = []Assignment{
	{ID: 1, Description: "Read chapter 3 and summarize", Deadline: 1767225600, IsActive: true},
	{ID: 2, Description: "Implement a linked list", Deadline: 1769904000, IsActive: true},
}

var mockSubmissions = []Submission{
	{AssignmentID: 1, Student: "0x00000000000000000000000000000000000000aa", FileHash: "QmMockHash1", Timestamp: 1766620800},
	{AssignmentID: 2, Student: "0x00000000000000000000000000000000000000bb", FileHash: "QmMockHash2", Timestamp: 1766707200},
}
