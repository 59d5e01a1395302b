package logging

import (
	"encoding/hex"
	"log/slog"
	"strings"

	"lukechampine.com/blake3"
)

// RedactedValue replaces secret values in log output.
const RedactedValue = "[REDACTED]"

// secretKeys name attributes the handler never writes verbatim, whatever the
// caller passed.
var secretKeys = map[string]struct{}{
	"private_key":   {},
	"secret_key":    {},
	"seed":          {},
	"keypair":       {},
	"authorization": {},
	"otlp_headers":  {},
}

// IsSecret reports whether key names secret material.
func IsSecret(key string) bool {
	_, ok := secretKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// redact scrubs secret attributes. Setup installs it on every handler.
func redact(attr slog.Attr) slog.Attr {
	if !IsSecret(attr.Key) {
		return attr
	}
	if attr.Value.Kind() == slog.KindString && attr.Value.String() == "" {
		return attr
	}
	return slog.String(attr.Key, RedactedValue)
}

// KeyFingerprint identifies key material without revealing it: the first
// eight bytes of its blake3 digest in hex. Two log lines naming the same
// wallet carry the same fingerprint.
func KeyFingerprint(key string, material []byte) slog.Attr {
	if len(material) == 0 {
		return slog.String(key, "")
	}
	sum := blake3.Sum256(material)
	return slog.String(key, hex.EncodeToString(sum[:8]))
}
