package features

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// DecodePolicy decides what happens to bytes that are not valid UTF-8.
type DecodePolicy string

const (
	// DecodeSkip drops invalid bytes.
	DecodeSkip DecodePolicy = "skip"
	// DecodeReplace substitutes U+FFFD for each invalid sequence.
	DecodeReplace DecodePolicy = "replace"
	// DecodeFail treats the file as unreadable.
	DecodeFail DecodePolicy = "fail"
)

var ErrInvalidEncoding = errors.New("invalid utf-8 content")

// ParseDecodePolicy validates a policy name; empty selects DecodeSkip.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", DecodeSkip:
		return DecodeSkip, nil
	case DecodeReplace:
		return DecodeReplace, nil
	case DecodeFail:
		return DecodeFail, nil
	default:
		return "", fmt.Errorf("unknown decode policy %q: must be skip, replace or fail", s)
	}
}

// Decode converts raw file bytes to text according to the policy.
func Decode(raw []byte, policy DecodePolicy) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	switch policy {
	case DecodeReplace:
		return strings.ToValidUTF8(string(raw), string(utf8.RuneError)), nil
	case DecodeFail:
		return "", ErrInvalidEncoding
	default:
		return strings.ToValidUTF8(string(raw), ""), nil
	}
}
