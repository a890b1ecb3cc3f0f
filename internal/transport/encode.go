package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/gohx/gohx/internal/request"
)

// EncodeBody serializes the descriptor's parameter set per its encoding
// kind. GET requests carry no body (their parameters were appended to
// the URL at build time).
func EncodeBody(d *request.Descriptor) (io.Reader, string, error) {
	if d.Method == http.MethodGet || len(d.Params) == 0 {
		return nil, "", nil
	}
	switch d.Encoding {
	case request.EncodingMultipart:
		return encodeMultipart(d)
	case request.EncodingJSON:
		return encodeJSON(d)
	default:
		return encodeURLForm(d)
	}
}

// encodeURLForm writes application/x-www-form-urlencoded preserving
// parameter order.
func encodeURLForm(d *request.Descriptor) (io.Reader, string, error) {
	var sb strings.Builder
	for i, p := range d.Params {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(p.Name))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.Value))
	}
	return strings.NewReader(sb.String()), "application/x-www-form-urlencoded", nil
}

// encodeMultipart writes multipart/form-data. File-bearing fields are
// written as file parts carrying the filename; actual file contents
// live outside the engine (the embedder resolves them), so the part
// body is the value itself.
func encodeMultipart(d *request.Descriptor) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range d.Params {
		if p.File {
			fw, err := w.CreateFormFile(p.Name, p.Value)
			if err != nil {
				return nil, "", err
			}
			if _, err := fw.Write([]byte(p.Value)); err != nil {
				return nil, "", err
			}
			continue
		}
		if err := w.WriteField(p.Name, p.Value); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// encodeJSON serializes the parameter set as one JSON object. Repeated
// names become arrays; structured hx-vals values stay structured.
func encodeJSON(d *request.Descriptor) (io.Reader, string, error) {
	obj := make(map[string]any)
	for _, p := range d.Params {
		var v any = p.Value
		if p.Structured != nil {
			v = p.Structured
		}
		existing, ok := obj[p.Name]
		if !ok {
			obj[p.Name] = v
			continue
		}
		if arr, isArr := existing.([]any); isArr {
			obj[p.Name] = append(arr, v)
		} else {
			obj[p.Name] = []any{existing, v}
		}
	}
	text, err := json.Marshal(obj)
	if err != nil {
		return nil, "", err
	}
	return bytes.NewReader(text), "application/json", nil
}
