package ledger

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Minimal ABI support for the handful of read calls this service makes.
// Covers static words (uint256, address, bool) and dynamic strings in
// getter return tuples; nothing else is needed.

const wordSize = 32

// selector returns the 4-byte function selector for a signature like
// "submissions(uint256)".
func selector(signature string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	return h.Sum(nil)[:4]
}

// encodeCall builds eth_call data: selector followed by 32-byte words.
func encodeCall(signature string, args ...[wordSize]byte) []byte {
	data := make([]byte, 0, 4+len(args)*wordSize)
	data = append(data, selector(signature)...)
	for _, a := range args {
		data = append(data, a[:]...)
	}
	return data
}

// encodeUint64 left-pads a uint64 into an ABI word.
func encodeUint64(v uint64) [wordSize]byte {
	var w [wordSize]byte
	big.NewInt(0).SetUint64(v).FillBytes(w[:])
	return w
}

// hexData renders call data as a 0x-prefixed hex string.
func hexData(data []byte) string {
	return "0x" + hex.EncodeToString(data)
}

// parseHex decodes a 0x-prefixed hex payload.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("ledger: bad hex payload: %w", err)
	}
	return b, nil
}

// word returns the i-th 32-byte word of a return payload.
func word(data []byte, i int) ([]byte, error) {
	start := i * wordSize
	if start+wordSize > len(data) {
		return nil, fmt.Errorf("ledger: return data too short for word %d", i)
	}
	return data[start : start+wordSize], nil
}

// wordUint64 decodes the i-th word as a uint64, rejecting overflow.
func wordUint64(data []byte, i int) (uint64, error) {
	w, err := word(data, i)
	if err != nil {
		return 0, err
	}
	v := new(big.Int).SetBytes(w)
	if !v.IsUint64() {
		return 0, fmt.Errorf("ledger: word %d out of uint64 range", i)
	}
	return v.Uint64(), nil
}

// wordBool decodes the i-th word as a bool.
func wordBool(data []byte, i int) (bool, error) {
	v, err := wordUint64(data, i)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// wordAddress decodes the i-th word as a 0x-prefixed lower-case address.
func wordAddress(data []byte, i int) (string, error) {
	w, err := word(data, i)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(w[12:]), nil
}

// dynamicString decodes a string whose offset lives in the i-th head word.
// The payload comes from an external RPC endpoint, so offset and length are
// validated in subtraction form; sums of untrusted uint64 values can wrap.
func dynamicString(data []byte, i int) (string, error) {
	offset, err := wordUint64(data, i)
	if err != nil {
		return "", err
	}
	size := uint64(len(data))
	if offset > size || size-offset < wordSize {
		return "", fmt.Errorf("ledger: string offset %d out of range", offset)
	}
	length := new(big.Int).SetBytes(data[offset : offset+wordSize])
	start := offset + wordSize
	if !length.IsUint64() || length.Uint64() > size-start {
		return "", fmt.Errorf("ledger: string data truncated")
	}
	return string(data[start : start+length.Uint64()]), nil
}
