package producer

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pscheid92/webmon/internal/domain"
)

const DefaultKeyPrefix = "producer"

// ClientConfig is the connector description a producer hands to the bridge at launch.
type ClientConfig struct {
	RedisURL  string `json:"redis_url"`
	KeyPrefix string `json:"key_prefix"`
}

// ParseClientConfig decodes a base64-encoded JSON ClientConfig.
func ParseClientConfig(encoded string) (ClientConfig, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return ClientConfig{}, fmt.Errorf("failed to decode producer client config: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("failed to parse producer client config: %w", err)
	}
	if cfg.RedisURL == "" {
		return ClientConfig{}, errors.New("producer client config is missing redis_url")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}
	return cfg, nil
}

// Encode returns the base64 form accepted by ParseClientConfig.
func (c ClientConfig) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.StdEncoding.EncodeToString(raw)
}

// ResolveClientConfig picks the connector config from the encoded client string, falling back
// to an explicit Redis URL. It returns domain.ErrNoProducer when neither is set.
func ResolveClientConfig(encoded, redisURL, keyPrefix string) (ClientConfig, error) {
	if encoded != "" {
		return ParseClientConfig(encoded)
	}
	if redisURL == "" {
		return ClientConfig{}, domain.ErrNoProducer
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return ClientConfig{RedisURL: redisURL, KeyPrefix: keyPrefix}, nil
}

type keys struct {
	snapshot string
	commands string
	messages string
	shutdown string
}

func newKeys(prefix string) keys {
	return keys{
		snapshot: prefix + ":snapshot",
		commands: prefix + ":commands",
		messages: prefix + ":messages",
		shutdown: prefix + ":shutdown",
	}
}
