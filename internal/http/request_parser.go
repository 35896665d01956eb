// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for reading search requests from either
// JSON bodies or form-encoded bodies posted by htmx.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"combos/internal/services"
)

// errMalformedRequest marks bodies that could not be read or decoded.
var errMalformedRequest = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data, commonly used with HTMX.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(r.Body)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		p.err = fmt.Errorf("%w: %w", errMalformedRequest, p.err)
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// JSON when declared or when the content looks like an object
	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.jsonData = nil
			p.err = fmt.Errorf("%w: %v", errMalformedRequest, err)
			return p.err
		}
		return nil
	}

	formData, err := url.ParseQuery(string(p.body))
	if err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedRequest, err)
		return p.err
	}
	p.formData = formData
	return nil
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
}

// GetLines returns a JSON array of strings, or nil when key is absent or not
// an array. Form bodies never carry lines.
func (p *RequestBodyParser) GetLines(key string) []string {
	if p.jsonData == nil {
		return nil
	}
	arr, ok := p.jsonData[key].([]interface{})
	if !ok {
		return nil
	}
	lines := make([]string, len(arr))
	for i, v := range arr {
		lines[i] = sanitizeInput(stringValue(v))
	}
	return lines
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

// ContentType returns the Content-Type header value.
func (p *RequestBodyParser) ContentType() string {
	return p.contentType
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseSearchRequest reads text, lines, target and max_count from the body.
// Both "max_count" and the form field "max" are accepted for the cap.
func ParseSearchRequest(r *http.Request) (services.SearchRequest, *RequestBodyParser, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return services.SearchRequest{}, p, err
	}

	req := services.SearchRequest{
		Text:     p.Get("text"),
		Lines:    p.GetLines("lines"),
		Target:   p.Get("target"),
		MaxCount: p.Get("max_count"),
	}
	if req.MaxCount == "" {
		req.MaxCount = p.Get("max")
	}
	return req, p, nil
}

// parseExportIndex reads the 1-based combination number to export.
func parseExportIndex(p *RequestBodyParser) (int, error) {
	raw := p.Get("n")
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", services.ErrNoSuchCombination, raw)
	}
	return n, nil
}
