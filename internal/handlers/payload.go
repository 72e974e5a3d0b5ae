package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"sports_club_backend/internal/services"
)

const maxBodyBytes = 1 << 20

// Parameters read by the auth gate itself, never passed to actions.
var reservedParams = map[string]bool{"action": true, "sportsClubId": true, "access_token": true}

// Payload is the input of an action: the JSON body, or the query and form
// parameters when there is no body.
type Payload struct {
	body   map[string]json.RawMessage
	params url.Values
}

// NewPayload builds a payload from a raw JSON object body and parameters.
func NewPayload(body []byte, params url.Values) (Payload, error) {
	p := Payload{params: params}
	if len(bytes.TrimSpace(body)) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p.body); err != nil {
		return p, fmt.Errorf("%w: body must be a JSON object", services.ErrInvalidPayload)
	}
	return p, nil
}

// ReadPayload reads the request body and parameters of c. The body stays
// readable for later handlers.
func ReadPayload(c *gin.Context) (Payload, error) {
	var body []byte
	if c.Request.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes+1))
		if err != nil {
			return Payload{}, fmt.Errorf("%w: reading body: %v", services.ErrInvalidPayload, err)
		}
		if len(body) > maxBodyBytes {
			return Payload{}, fmt.Errorf("%w: body too large", services.ErrInvalidPayload)
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
	}

	params := url.Values{}
	for k, v := range c.Request.URL.Query() {
		params[k] = v
	}
	if isForm(c.Request) {
		if err := c.Request.ParseForm(); err == nil {
			for k, v := range c.Request.PostForm {
				if _, ok := params[k]; !ok {
					params[k] = v
				}
			}
		}
		body = nil
	}
	return NewPayload(body, params)
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// HasBody reports whether the payload came with a JSON body.
func (p Payload) HasBody() bool {
	return p.body != nil
}

// Param returns a top-level string field of the body, or else a parameter.
func (p Payload) Param(keys ...string) string {
	for _, k := range keys {
		if raw, ok := p.body[k]; ok {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil {
				return strings.TrimSpace(s)
			}
			return strings.Trim(strings.TrimSpace(string(raw)), `"`)
		}
	}
	for _, k := range keys {
		if v := p.params.Get(k); v != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// Bind decodes the body into dst. Without a body the parameters are used,
// each one as a string field.
func (p Payload) Bind(dst interface{}) error {
	var raw []byte
	var err error
	if p.body != nil {
		raw, err = json.Marshal(p.body)
	} else {
		fields := make(map[string]string, len(p.params))
		for k, v := range p.params {
			if !reservedParams[k] && len(v) > 0 {
				fields[k] = v[0]
			}
		}
		raw, err = json.Marshal(fields)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", services.ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s", services.ErrInvalidPayload, describeJSONError(err))
	}
	return nil
}

func describeJSONError(err error) string {
	if te, ok := err.(*json.UnmarshalTypeError); ok && te.Field != "" {
		return fmt.Sprintf("field %s has the wrong type", te.Field)
	}
	return err.Error()
}
