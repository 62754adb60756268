// Package transport moves switch collections between installations as text.
//
// A collection is encoded into a versioned binary payload, base64-encoded and
// framed between BEGIN/END sentinel lines, PEM style:
//
//	-----BEGIN SWITCHES-----
//	<base64 payload, 64 characters per line>
//	-----END SWITCHES-----
//
// The payload format is plain data. Decoding never executes anything carried
// in the archive, but an import still rewrites arbitrary switches, so callers
// must restrict Import to privileged principals.
package transport

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/solatis/switchboard/internal/types"
)

// Armor sentinels and body width.
const (
	BeginSentinel = "-----BEGIN SWITCHES-----"
	EndSentinel   = "-----END SWITCHES-----"
	LineWidth     = 64
)

// Armor frames payload as sentinel-delimited base64 lines joined by "\n".
func Armor(payload []byte) string {
	body := base64.StdEncoding.EncodeToString(payload)

	lines := make([]string, 0, len(body)/LineWidth+3)
	lines = append(lines, BeginSentinel)
	for len(body) > LineWidth {
		lines = append(lines, body[:LineWidth])
		body = body[LineWidth:]
	}
	if body != "" {
		lines = append(lines, body)
	}
	lines = append(lines, EndSentinel)
	return strings.Join(lines, "\n")
}

// Dearmor extracts the payload from armored text.
// Lines may end in "\n" or "\r\n". The first and last non-empty lines must be
// the sentinels; interior lines are concatenated in order and base64-decoded.
func Dearmor(text string) ([]byte, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: missing armor sentinels", types.ErrMalformedInput)
	}
	if lines[0] != BeginSentinel {
		return nil, fmt.Errorf("%w: first line is not %s", types.ErrMalformedInput, BeginSentinel)
	}
	if lines[len(lines)-1] != EndSentinel {
		return nil, fmt.Errorf("%w: last line is not %s", types.ErrMalformedInput, EndSentinel)
	}

	body := strings.Join(lines[1:len(lines)-1], "")
	payload, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
	}
	return payload, nil
}
