// Package signature derives deterministic cache keys for provider requests.
package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Compute returns a hex digest identifying a logical request. Two requests
// with the same endpoint and parameters hash identically regardless of the
// order map keys were supplied in.
func Compute(endpoint string, params any) (string, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", errors.New("endpoint is required")
	}

	canonical, err := canonicalize(params)
	if err != nil {
		return "", fmt.Errorf("normalize params: %w", err)
	}

	sum := sha256.Sum256([]byte(endpoint + ":" + canonical))
	return hex.EncodeToString(sum[:]), nil
}

// canonicalize round-trips params through JSON so every map is rendered with
// sorted keys, including maps nested inside slices.
func canonicalize(params any) (string, error) {
	if params == nil {
		return "null", nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", err
	}

	normalized, err := json.Marshal(decoded)
	if err != nil {
		return "", err
	}

	return string(normalized), nil
}
