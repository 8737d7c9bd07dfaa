package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"budgetwatch/internal/core"
)

func TestParseMonthParam(t *testing.T) {
	today := core.NewDate(2024, 7, 15)

	tests := []struct {
		name    string
		query   url.Values
		want    core.MonthYear
		wantErr bool
	}{
		{"default is current month", url.Values{}, core.NewMonthYear(2024, time.July), false},
		{"canonical form", url.Values{"month": {"2023-12"}}, core.NewMonthYear(2023, time.December), false},
		{"numeric month uses current year", url.Values{"month": {"3"}}, core.NewMonthYear(2024, time.March), false},
		{"numeric year and month", url.Values{"year": {"2022"}, "month": {"11"}}, core.NewMonthYear(2022, time.November), false},
		{"month out of range", url.Values{"month": {"13"}}, core.MonthYear{}, true},
		{"garbage", url.Values{"month": {"abc"}}, core.MonthYear{}, true},
		{"bad canonical", url.Values{"month": {"2024-1x"}}, core.MonthYear{}, true},
		{"bad year", url.Values{"year": {"y"}, "month": {"1"}}, core.MonthYear{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMonthParam(tt.query, today)
			if tt.wantErr {
				if !errors.Is(err, core.ErrInvalidMonth) {
					t.Errorf("err = %v, want ErrInvalidMonth", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("month = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		want     string
		wantCode int
	}{
		{"present", "user-1", "user-1", 0},
		{"trimmed", "  user-1 ", "user-1", 0},
		{"missing", "", "", http.StatusUnauthorized},
		{"too long", strings.Repeat("x", 200), "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/expenses", nil)
			if tt.header != "" {
				r.Header.Set(OwnerHeader, tt.header)
			}
			got, resp := RequireOwner(r)
			if tt.wantCode == 0 {
				if resp != nil {
					t.Fatalf("unexpected error response %d", resp.statusCode)
				}
				if got != tt.want {
					t.Errorf("owner = %q, want %q", got, tt.want)
				}
				return
			}
			if resp == nil || resp.statusCode != tt.wantCode {
				t.Errorf("want error response %d, got %+v", tt.wantCode, resp)
			}
		})
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantIsJSON  bool
		wantErr     bool
		checks      map[string]string
	}{
		{
			name:        "JSON body",
			body:        `{"amount": 12.5, "description": "Lunch", "category": "food"}`,
			contentType: "application/json",
			wantIsJSON:  true,
			checks:      map[string]string{"amount": "12.5", "description": "Lunch", "category": "food"},
		},
		{
			name:        "form body",
			body:        "amount=10%2C50&description=Bus+ticket",
			contentType: "application/x-www-form-urlencoded",
			checks:      map[string]string{"amount": "10,50", "description": "Bus ticket"},
		},
		{
			name:   "empty body",
			body:   "",
			checks: map[string]string{"amount": ""},
		},
		{
			name:    "broken JSON",
			body:    `{"amount": `,
			wantErr: true,
		},
		{
			name:       "control characters are stripped",
			body:       `{"description": "a\u0000b"}`,
			wantIsJSON: true,
			checks:     map[string]string{"description": "ab"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/expenses", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)

			p := NewRequestBodyParser(r)
			err := p.Parse()
			if tt.wantErr {
				if err == nil {
					t.Error("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.wantIsJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantIsJSON)
			}
			for key, want := range tt.checks {
				if got := p.Get(key); got != want {
					t.Errorf("Get(%q) = %q, want %q", key, got, want)
				}
			}
		})
	}
}

func TestParseBoolParam(t *testing.T) {
	q := url.Values{"unread": {"1"}, "all": {"false"}, "junk": {"maybe"}}
	if !ParseBoolParam(q, "unread") {
		t.Error("unread=1 should be true")
	}
	if ParseBoolParam(q, "all") || ParseBoolParam(q, "junk") || ParseBoolParam(q, "missing") {
		t.Error("false, junk and missing flags should be false")
	}
}
