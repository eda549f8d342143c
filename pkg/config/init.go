package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# DittoHTTP Configuration File
#
# Values can be overridden with DITTOHTTP_* environment variables,
# e.g. DITTOHTTP_LOGGING_LEVEL=DEBUG or DITTOHTTP_ADAPTERS_HTTP_PORT=9000.
`

// keyComments maps dotted config paths to the comment written above them.
var keyComments = map[string]string{
	"logging":        "Logging configuration",
	"logging.level":  "DEBUG, INFO, WARN or ERROR",
	"logging.format": "text or json",
	"logging.output": "stdout, stderr or a file path",

	"server":                  "Server-wide settings",
	"server.shutdown_timeout": "Maximum time to wait for adapters during shutdown",
	"server.metrics":          "Prometheus exporter (GET /metrics)",

	"adapters":                            "Protocol adapters",
	"adapters.http.port":                  "TCP port to accept connections on",
	"adapters.http.max_connections":       "Connections served concurrently; extra sockets are closed on accept",
	"adapters.http.first_byte_timeout":    "A connection that sends nothing within this window is dropped",
	"adapters.http.read_buffer_size":      "Bytes per socket read; a short read ends the request",
	"adapters.http.max_request_size":      "Larger requests are rejected with 413",
	"adapters.http.decode_failure_policy": "respond (400/413) or drop (close without a response)",
	"adapters.http.metrics_log_interval":  "Interval for logging connection counts; negative disables",
	"adapters.http.rate_limit":            "Admission token bucket; requests_per_second 0 disables",

	"store":        "Key/value store behind the /kv routes",
	"store.type":   "memory, badger or s3; only the matching section is used",
	"store.memory": "max_keys: 0 means unlimited",
	"store.badger": "db_path is required unless in_memory is true",
	"store.s3":     "bucket is required; endpoint, access_key_id and secret_access_key are optional",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path written. Fails if the file exists and force is false.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above each
// documented key.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	annotate(&doc, "")

	var b strings.Builder
	b.WriteString(configHeader)
	b.WriteString("\n")

	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}

	return b.String(), nil
}

func annotate(n *yaml.Node, prefix string) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			annotate(c, prefix)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			path := key.Value
			if prefix != "" {
				path = prefix + "." + key.Value
			}
			if comment, ok := keyComments[path]; ok {
				key.HeadComment = comment
			}
			annotate(n.Content[i+1], path)
		}
	}
}
