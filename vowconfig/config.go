package vowconfig

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the declarative description of one connection/session: which
// service to dial (or accept), which protocol version, where to reach it,
// static headers to send during the handshake, and the merged Option
// settings. It loads from JSON or YAML via the toMap/fromMap idiom
// loader.serialization.go uses for StreamSerialization, rather than plain
// struct tags, so that Option's connect_timeout can be either a YAML/JSON
// number (nanoseconds) or a human-written duration string such as "10s".
// The other Option fields take native numbers and booleans only.
type Config struct {
	Service string
	Proto   string
	URL     string
	Headers map[string]any
	Option  *Option
}

// MarshalJSON implements json.Marshaler.
func (c *Config) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	c.toMap(m)
	return json.Marshal(m)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Config) UnmarshalJSON(b []byte) error {
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	return c.fromMap(m)
}

// MarshalYAML implements yaml.Marshaler.
func (c *Config) MarshalYAML() (any, error) {
	m := map[string]any{}
	c.toMap(m)
	return m, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Config) UnmarshalYAML(unmarshal func(any) error) error {
	m := map[string]any{}
	if err := unmarshal(&m); err != nil {
		return err
	}
	return c.fromMap(m)
}

func (c *Config) toMap(m map[string]any) {
	m["service"] = c.Service
	m["proto"] = c.Proto
	m["url"] = c.URL
	m["headers"] = c.Headers

	opt := c.Option.Resolved()
	m["connect_timeout"] = opt.ConnectTimeout.String()
	m["default_buffer_size"] = *opt.DefaultBufferSize
	m["bidirectional_stream_ids"] = *opt.BidirectionalStreamIDs
	m["metrics"] = *opt.Metrics
}

func (c *Config) fromMap(m map[string]any) error {
	service, ok := m["service"].(string)
	if !ok {
		return fmt.Errorf("vowconfig: missing service field")
	}
	c.Service = service

	proto, ok := m["proto"].(string)
	if !ok {
		return fmt.Errorf("vowconfig: missing proto field")
	}
	c.Proto = proto

	if url, ok := m["url"]; ok {
		c.URL, _ = url.(string)
	}

	if headers, ok := m["headers"]; ok {
		if hm, ok := headers.(map[string]any); ok {
			c.Headers = hm
		}
	}

	opt := &Option{}
	if v, ok := m["connect_timeout"]; ok {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("vowconfig: invalid connect_timeout: %w", err)
		}
		opt.ConnectTimeout = &d
	}
	if v, ok := m["default_buffer_size"]; ok {
		n, err := parseInt(v)
		if err != nil {
			return fmt.Errorf("vowconfig: invalid default_buffer_size: %w", err)
		}
		opt.DefaultBufferSize = &n
	}
	if v, ok := m["bidirectional_stream_ids"]; ok {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("vowconfig: bidirectional_stream_ids must be a boolean")
		}
		opt.BidirectionalStreamIDs = &b
	}
	if v, ok := m["metrics"]; ok {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("vowconfig: metrics must be a boolean")
		}
		opt.Metrics = &b
	}
	c.Option = opt

	return nil
}

func parseDuration(v any) (time.Duration, error) {
	switch x := v.(type) {
	case string:
		return time.ParseDuration(x)
	case int:
		return time.Duration(x), nil
	case int64:
		return time.Duration(x), nil
	case float64:
		return time.Duration(x), nil
	default:
		return 0, fmt.Errorf("unsupported duration type %T", v)
	}
}

func parseInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		return int(x), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

// LoadYAML parses a YAML document into a Config.
func LoadYAML(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadJSON parses a JSON document into a Config.
func LoadJSON(data []byte) (*Config, error) {
	c := &Config{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
