// Request body parsing for the entry form. htmx submits regular
// form-encoded bodies; JSON is accepted too so the endpoints stay scriptable.
package webui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tracker/internal/client"
	"tracker/internal/core"
)

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(r.Body)
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
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' || p.body[0] == '[' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a sanitized string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(sanitizeInput(stringValue(val)))
		}
	}
	if p.formData != nil {
		return strings.TrimSpace(sanitizeInput(p.formData.Get(key)))
	}
	return ""
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

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// ParseTransactionForm validates the entry form fields and builds the create
// request for the store. Required-field checks happen here; value validation
// beyond decimal parsing is the store's job.
func ParseTransactionForm(p *RequestBodyParser) (client.CreateRequest, error) {
	if err := p.Parse(); err != nil {
		return client.CreateRequest{}, errors.New("invalid request body")
	}

	for _, field := range []string{"type", "amount", "description", "category", "date"} {
		if p.Get(field) == "" {
			return client.CreateRequest{}, fmt.Errorf("missing required field: %s", field)
		}
	}

	typ, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return client.CreateRequest{}, fmt.Errorf("invalid type %q", p.Get("type"))
	}
	cents, err := core.ParseDecimalToCents(p.Get("amount"))
	if err != nil {
		return client.CreateRequest{}, fmt.Errorf("invalid amount %q", p.Get("amount"))
	}
	date, err := core.ParseDate(p.Get("date"))
	if err != nil {
		return client.CreateRequest{}, fmt.Errorf("invalid date %q", p.Get("date"))
	}

	return client.CreateRequest{
		Type:        typ,
		Amount:      core.Money{Cents: cents},
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        date,
	}, nil
}
