package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Collaborator endpoints default to local development values; the
// secrets have no defaults and are checked by Validate.
type Config struct {
	Addr string

	Redis  RedisConfig
	Issuer IssuerConfig
	IPFS   IPFSConfig
	Oracle OracleConfig
	Kafka  KafkaConfig

	// VerificationTTL bounds how long a cached verification verdict is
	// served before the external verifier is consulted again.
	VerificationTTL time.Duration
}

// RedisConfig holds connection settings for the credential store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IssuerConfig points at the external credential issuer (cheqd studio).
type IssuerConfig struct {
	BaseURL string
	APIKey  string
	Network string
}

// IPFSConfig points at the kubo node used as the content store.
type IPFSConfig struct {
	URL string
}

// OracleConfig points at the chat-completion endpoint backing the
// consistency oracle.
type OracleConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
	APIKey      string
}

// KafkaConfig holds the audit event pipeline settings. Empty Brokers disables
// the kafka publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr: envOr("CRDBL_ADDR", ":3000"),
		Redis: RedisConfig{
			URL:          envOr("REDIS_URL", "redis://localhost:6379"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Issuer: IssuerConfig{
			BaseURL: envOr("CHEQD_STUDIO_URL", "https://studio-api.cheqd.net"),
			APIKey:  os.Getenv("CHEQD_API_KEY"),
			Network: envOr("CHEQD_NETWORK", "testnet"),
		},
		IPFS: IPFSConfig{
			URL: envOr("IPFS_URL", "http://localhost:5001"),
		},
		Oracle: OracleConfig{
			Endpoint:    envOr("AI_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
			Model:       envOr("AI_MODEL", "gpt-4o-mini"),
			Temperature: envFloat("AI_TEMPERATURE", 0),
			APIKey:      os.Getenv("OPENAI_API_KEY"),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "crdbl.audit"),
		},
		VerificationTTL: time.Duration(envInt("VERIFICATION_CACHE_TTL_SECONDS", 600)) * time.Second,
	}
}

// Validate fails closed on missing secrets so a misconfigured deployment never
// serves issuance requests.
func (c Config) Validate() error {
	var missing []string
	if c.Issuer.APIKey == "" {
		missing = append(missing, "CHEQD_API_KEY")
	}
	if c.Oracle.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, sep) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
