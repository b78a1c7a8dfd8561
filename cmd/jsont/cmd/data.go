package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"resty.dev/v3"

	"github.com/benjaminschreck/go-jsont/pkg/jsont/node"
)

const fetchTimeout = 30 * time.Second

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// loadData reads a JSON or YAML document from a file or an http(s) URL. An
// empty source yields an empty object.
func loadData(ctx context.Context, source string) (any, error) {
	if source == "" {
		return map[string]any{}, nil
	}
	if isURL(source) {
		return fetchData(ctx, source)
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return decodeDocument(source, raw)
}

func fetchData(ctx context.Context, url string) (any, error) {
	client := resty.New().SetTimeout(fetchTimeout)
	defer client.Close()

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, application/yaml").
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch data from %s: %w", url, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch data from %s: status %d", url, res.StatusCode())
	}
	if strings.Contains(res.Header().Get("Content-Type"), "yaml") {
		return decodeDocument(".yaml", []byte(res.String()))
	}
	return decodeDocument(url, []byte(res.String()))
}

// decodeDocument picks the decoder from the extension of name. Anything
// that is not .yaml or .yml is treated as JSON.
func decodeDocument(name string, raw []byte) (any, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to parse YAML %s: %w", name, err)
		}
		return node.Normalize(v)
	}
	v, err := node.DecodeBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON %s: %w", name, err)
	}
	return v, nil
}

// loadPartials reads an object mapping partial names to template text.
func loadPartials(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read partials file: %w", err)
	}
	doc, err := decodeDocument(path, raw)
	if err != nil {
		return nil, err
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("partials file %s must contain an object", path)
	}
	partials := make(map[string]string, len(obj))
	for name, v := range obj {
		text, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("partial %q must be a string", name)
		}
		partials[name] = text
	}
	return partials, nil
}

// loadInjectables loads {.inject} data. Each spec is name=FILE, or a bare
// FILE that is injected under its own path.
func loadInjectables(ctx context.Context, specs []string) (map[string]any, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(specs))
	for _, spec := range specs {
		name, source, ok := strings.Cut(spec, "=")
		if !ok {
			source = name
		}
		if name == "" || source == "" {
			return nil, fmt.Errorf("invalid injectable %q, expected name=FILE", spec)
		}
		v, err := loadData(ctx, source)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}
