// Package params reads host configuration parameters.
//
// The estimation core only needs a handful of string parameters from its
// host (the device identifier of a sensor, for instance). Source abstracts
// where they come from: an in-memory map, a YAML file, or an etcd key space
// shared by a fleet of processes.
package params

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Source looks up string parameters by key. Keys are slash-separated paths
// such as "lidar/device_id".
type Source interface {
	// Lookup returns the value for key and whether it was present.
	Lookup(ctx context.Context, key string) (string, bool, error)
}

// Map is a Source backed by a map.
type Map map[string]string

// Lookup implements Source.
func (m Map) Lookup(_ context.Context, key string) (string, bool, error) {
	v, ok := m[normalizeKey(key)]
	return v, ok, nil
}

// Keys returns the keys in m, sorted.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseYAML flattens a YAML document into a Map. Nested mappings become
// slash-separated keys; scalar values are kept in their textual form.
// Sequences are not supported as parameter values.
//
// Example:
//
//	lidar:
//	  device_id: 123e4567-e89b-12d3-a456-426614174000
//
// yields the key "lidar/device_id".
func ParseYAML(data []byte) (Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse parameter YAML: %w", err)
	}
	out := Map{}
	if len(root.Content) == 0 {
		return out, nil
	}
	if err := flatten(root.Content[0], "", out); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadYAMLFile reads and flattens a YAML parameter file.
func LoadYAMLFile(path string) (Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}
	m, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func flatten(n *yaml.Node, prefix string, out Map) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if prefix != "" {
				key = prefix + "/" + key
			}
			if err := flatten(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
	case yaml.ScalarNode:
		if prefix == "" {
			return fmt.Errorf("parameter YAML must be a mapping, got scalar %q", n.Value)
		}
		out[prefix] = n.Value
	case yaml.AliasNode:
		return flatten(n.Alias, prefix, out)
	default:
		return fmt.Errorf("unsupported YAML value at %q (line %d)", prefix, n.Line)
	}
	return nil
}

// Etcd is a Source reading keys under a prefix of an etcd key space.
type Etcd struct {
	kv     clientv3.KV
	prefix string
}

// NewEtcd returns a Source reading prefix+key from kv. A *clientv3.Client
// satisfies clientv3.KV.
func NewEtcd(kv clientv3.KV, prefix string) *Etcd {
	return &Etcd{kv: kv, prefix: prefix}
}

// Lookup implements Source.
func (e *Etcd) Lookup(ctx context.Context, key string) (string, bool, error) {
	full := e.prefix + normalizeKey(key)
	resp, err := e.kv.Get(ctx, full)
	if err != nil {
		return "", false, fmt.Errorf("failed to read parameter %q from etcd: %w", full, err)
	}
	if len(resp.Kvs) == 0 {
		return "", false, nil
	}
	return string(resp.Kvs[0].Value), true, nil
}

// Chain is a Source that consults each source in order and returns the first
// value found.
type Chain []Source

// Lookup implements Source.
func (c Chain) Lookup(ctx context.Context, key string) (string, bool, error) {
	for _, s := range c {
		v, ok, err := s.Lookup(ctx, key)
		if err != nil {
			return "", false, err
		}
		if ok {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Sub returns a Source that prefixes every key with ns.
func Sub(s Source, ns string) Source {
	return sub{src: s, ns: strings.Trim(ns, "/")}
}

type sub struct {
	src Source
	ns  string
}

func (s sub) Lookup(ctx context.Context, key string) (string, bool, error) {
	if s.ns == "" {
		return s.src.Lookup(ctx, key)
	}
	return s.src.Lookup(ctx, s.ns+"/"+normalizeKey(key))
}

func normalizeKey(key string) string {
	return strings.Trim(key, "/")
}
