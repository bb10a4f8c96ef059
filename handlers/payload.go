package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const maxMemory = 32 << 20

var errBadPayload = errors.New("Invalid request body")

// payload is a request body normalized to raw JSON values per field. Form
// fields arrive as JSON strings, so every accessor accepts both the native
// JSON type and its string rendering.
type payload struct {
	fields map[string]json.RawMessage
	files  map[string][]*multipart.FileHeader
	log    *zap.Logger
}

func readPayload(r *http.Request, log *zap.Logger) (*payload, error) {
	p := &payload{fields: map[string]json.RawMessage{}, log: log}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		p.files = r.MultipartForm.File
		p.addForm(r.MultipartForm.Value)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		p.addForm(r.PostForm)
	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
		if len(bytes.TrimSpace(body)) == 0 {
			return p, nil
		}
		if err := json.Unmarshal(body, &p.fields); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadPayload, err)
		}
	}
	return p, nil
}

func (p *payload) addForm(values map[string][]string) {
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		raw, _ := json.Marshal(vs[0])
		p.fields[key] = raw
	}
}

func (p *payload) has(key string) bool {
	raw, ok := p.fields[key]
	return ok && string(raw) != "null"
}

// str returns a field as text. Numbers and booleans are rendered as they
// were sent.
func (p *payload) str(key string) (string, bool) {
	if !p.has(key) {
		return "", false
	}
	raw := p.fields[key]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	if raw[0] == '{' || raw[0] == '[' {
		return "", false
	}
	return string(raw), true
}

func (p *payload) float(key string) (float64, bool, error) {
	if !p.has(key) {
		return 0, false, nil
	}
	var f float64
	if err := json.Unmarshal(p.fields[key], &f); err == nil {
		return f, true, nil
	}
	s, _ := p.str(key)
	if strings.TrimSpace(s) == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s must be a number", errBadPayload, key)
	}
	return f, true, nil
}

func (p *payload) boolean(key string) (bool, bool) {
	if !p.has(key) {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(p.fields[key], &b); err == nil {
		return b, true
	}
	s, _ := p.str(key)
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return b, err == nil
}

// list reads a list of strings. A string value is parsed as a JSON array
// and, failing that, split on commas.
func (p *payload) list(key string) ([]string, bool) {
	if !p.has(key) {
		return nil, false
	}
	var out []string
	if err := json.Unmarshal(p.fields[key], &out); err == nil {
		return out, true
	}
	s, ok := p.str(key)
	if !ok {
		return nil, false
	}
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, true
	}
	out = []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, true
}

// object decodes a nested object into dst. A string value is parsed as
// JSON; when that fails the field is logged and left unset.
func (p *payload) object(key string, dst any) bool {
	if !p.has(key) {
		return false
	}
	raw := p.fields[key]
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.log.Warn("ignoring malformed field", zap.String("field", key), zap.Error(err))
		return false
	}
	return true
}

func (p *payload) file(key string) *multipart.FileHeader {
	if fs := p.files[key]; len(fs) > 0 {
		return fs[0]
	}
	return nil
}
