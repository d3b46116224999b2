// Package config describes one load run: the request to repeat, how many
// times, at what concurrency, and under which per-attempt timeout. A config
// is validated once before dispatch begins; the derived RequestSpec is
// immutable and shared read-only by all workers.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRequests    = 100
	DefaultConcurrency = 10
	DefaultTimeout     = 30 * time.Second
)

var allowedMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true,
}

type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	switch value.Tag {
	case "!!int", "!!float":
		var secs float64
		if err := value.Decode(&secs); err != nil {
			return err
		}
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	default:
		var raw string
		if err := value.Decode(&raw); err != nil {
			return err
		}
		if raw == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
		return nil
	}
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Header is one request header. Headers preserve insertion order; key
// comparison is case-insensitive.
type Header struct {
	Key   string
	Value string
}

type Headers []Header

// Set replaces the value of an existing key (case-insensitive) in place, or
// appends a new header, so the wire order stays stable.
func (h *Headers) Set(key, value string) {
	for i := range *h {
		if strings.EqualFold((*h)[i].Key, key) {
			(*h)[i].Value = value
			return
		}
	}
	*h = append(*h, Header{Key: key, Value: value})
}

func (h Headers) Get(key string) (string, bool) {
	for _, hdr := range h {
		if strings.EqualFold(hdr.Key, key) {
			return hdr.Value, true
		}
	}
	return "", false
}

func (h *Headers) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("headers must be a mapping")
	}
	// yaml.Node keeps document order; Content holds alternating key/value nodes.
	for i := 0; i+1 < len(value.Content); i += 2 {
		var key, val string
		if err := value.Content[i].Decode(&key); err != nil {
			return err
		}
		if err := value.Content[i+1].Decode(&val); err != nil {
			return err
		}
		h.Set(key, val)
	}
	return nil
}

// ParseHeaderLine parses a "Key: Value" CLI argument.
func ParseHeaderLine(line string) (Header, error) {
	key, value, found := strings.Cut(line, ":")
	if !found {
		return Header{}, fmt.Errorf("invalid header %q: expected \"Key: Value\"", line)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return Header{}, fmt.Errorf("invalid header %q: empty key", line)
	}
	return Header{Key: key, Value: strings.TrimSpace(value)}, nil
}

// RequestSpec is the immutable description of one HTTP call shared by all
// dispatch workers.
type RequestSpec struct {
	Method  string
	URL     string
	Headers Headers
	Body    []byte
	Timeout time.Duration
}

// RunConfig is the full description of a run: request plus load parameters.
type RunConfig struct {
	URL         string   `yaml:"url"`
	Method      string   `yaml:"method"`
	Body        string   `yaml:"body"`
	Headers     Headers  `yaml:"headers"`
	Requests    int      `yaml:"requests"`
	Concurrency int      `yaml:"concurrency"`
	Timeout     Duration `yaml:"timeout"`
}

// ApplyDefaults fills unset load parameters and picks the method the same
// way the CLI contract documents: POST when a body is present, GET otherwise.
// A JSON body defaults Content-Type to application/json unless the user set
// one.
func (c *RunConfig) ApplyDefaults() {
	if c.Requests == 0 {
		c.Requests = DefaultRequests
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Timeout == 0 {
		c.Timeout = Duration(DefaultTimeout)
	}
	if c.Method == "" {
		if c.Body != "" {
			c.Method = "POST"
		} else {
			c.Method = "GET"
		}
	}
	c.Method = strings.ToUpper(c.Method)
	if c.Body != "" && json.Valid([]byte(c.Body)) {
		if _, ok := c.Headers.Get("Content-Type"); !ok {
			c.Headers.Set("Content-Type", "application/json")
		}
	}
}

// Validate rejects a bad configuration before any request is dispatched.
func (c *RunConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("url is required")
	}
	parsed, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", c.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", c.URL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", c.URL)
	}
	if !allowedMethods[strings.ToUpper(c.Method)] {
		return fmt.Errorf("invalid method %q", c.Method)
	}
	if c.Requests <= 0 {
		return fmt.Errorf("requests must be positive, got %d", c.Requests)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout.Duration())
	}
	return nil
}

// Spec builds the immutable request description handed to the dispatcher.
func (c *RunConfig) Spec() RequestSpec {
	headers := make(Headers, len(c.Headers))
	copy(headers, c.Headers)
	var body []byte
	if c.Body != "" {
		body = []byte(c.Body)
	}
	return RequestSpec{
		Method:  c.Method,
		URL:     c.URL,
		Headers: headers,
		Body:    body,
		Timeout: c.Timeout.Duration(),
	}
}

// Load reads a scenario file, applies defaults and validates it.
func Load(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
