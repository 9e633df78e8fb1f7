package provider

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURL splits and base64-decodes a "data:<mime>;base64,<data>"
// string, returning the raw bytes and mime type. Callers outside this
// package (the executor, uploading a provider result to blob storage) use
// this instead of parseDataURL, which leaves the payload base64-encoded.
func DecodeDataURL(raw string) (mime string, data []byte, err error) {
	mimeType, encoded, err := parseDataURL(raw)
	if err != nil {
		return "", nil, err
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("provider: decode data URL payload: %w", err)
	}
	return mimeType, decoded, nil
}

// parseDataURL splits a "data:<mime>;base64,<data>" string into its mime
// type and base64 payload.
func parseDataURL(raw string) (mime, data string, err error) {
	const prefix = "data:"
	if !strings.HasPrefix(raw, prefix) {
		return "", "", fmt.Errorf("provider: not a data URL")
	}
	rest := raw[len(prefix):]
	comma := strings.IndexByte(rest, ',')
	if comma < 0 {
		return "", "", fmt.Errorf("provider: malformed data URL")
	}
	meta, data := rest[:comma], rest[comma+1:]
	semicolon := strings.IndexByte(meta, ';')
	if semicolon < 0 {
		return "", "", fmt.Errorf("provider: data URL missing encoding segment")
	}
	return meta[:semicolon], data, nil
}
