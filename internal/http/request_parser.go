// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// It reduces code duplication by providing reusable functions for owner
// extraction, month selection and body parsing.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"budgetwatch/internal/core"
)

const (
	// OwnerHeader carries the authenticated user, set by the upstream auth layer.
	OwnerHeader = "X-User-ID"

	maxOwnerLength = 128
	maxBodyBytes   = 64 << 10
)

// RequireOwner returns the caller's owner ID, or an error response when
// the header is missing or malformed.
func RequireOwner(r *http.Request) (string, *ResponseBuilder) {
	owner := sanitizeInput(r.Header.Get(OwnerHeader))
	if owner == "" {
		return "", UnauthorizedError("missing " + OwnerHeader + " header")
	}
	if len(owner) > maxOwnerLength {
		return "", BadRequestError("invalid " + OwnerHeader + " header")
	}
	return owner, nil
}

// ParseMonthParam selects the month a request is about. It accepts
// month=YYYY-MM, or the numeric year=&month= pair with the current year as
// default, and falls back to the month containing today.
func ParseMonthParam(query url.Values, today core.Date) (core.MonthYear, error) {
	month := strings.TrimSpace(query.Get("month"))
	if month == "" {
		return today.MonthYear(), nil
	}
	if strings.Contains(month, "-") {
		return core.ParseMonthYear(month)
	}

	m, err := strconv.Atoi(month)
	if err != nil {
		return core.MonthYear{}, fmt.Errorf("%w: %q", core.ErrInvalidMonth, month)
	}
	year := today.Year()
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if year, err = strconv.Atoi(v); err != nil {
			return core.MonthYear{}, fmt.Errorf("%w: year %q", core.ErrInvalidMonth, v)
		}
	}
	my := core.NewMonthYear(year, time.Month(m))
	return my, my.Validate()
}

// ParseBoolParam reads flags such as unread=1 or unread=true.
func ParseBoolParam(query url.Values, key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(query.Get(key)))
	return err == nil && v
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once, up to a fixed limit, and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	if r.Body != nil {
		p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
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
		return p.err
	}

	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(body)
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts a decoded JSON value to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseBody parses r's body or returns the 400 response to send.
func parseBody(r *http.Request) (*RequestBodyParser, *ResponseBuilder) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return nil, BadRequestError("malformed request body")
	}
	return p, nil
}
