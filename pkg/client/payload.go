package client

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"
)

// File is one uploaded file destined for a multipart part.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Payload is the body of a mutation: string-coerced values plus file parts.
type Payload struct {
	Values map[string]any
	Files  map[string][]File
}

// Encode writes the payload as multipart/form-data and returns the body and
// its content type. Keys are written in sorted order; nil values are omitted.
func (p Payload) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(p.Values))
	for key := range p.Values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, value := range flatten(p.Values[key]) {
			if err := writer.WriteField(key, value); err != nil {
				return nil, "", fmt.Errorf("client: write field %q: %w", key, err)
			}
		}
	}

	fileKeys := make([]string, 0, len(p.Files))
	for key := range p.Files {
		fileKeys = append(fileKeys, key)
	}
	sort.Strings(fileKeys)

	for _, key := range fileKeys {
		for _, file := range p.Files[key] {
			header := make(textproto.MIMEHeader)
			header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(key), escapeQuotes(file.Name)))
			contentType := file.ContentType
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			header.Set("Content-Type", contentType)
			part, err := writer.CreatePart(header)
			if err != nil {
				return nil, "", fmt.Errorf("client: create file part %q: %w", key, err)
			}
			if _, err := part.Write(file.Data); err != nil {
				return nil, "", fmt.Errorf("client: write file part %q: %w", key, err)
			}
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("client: close multipart writer: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

// Stringify coerces a record value into its wire form.
func Stringify(value any) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return fmt.Sprint(v), true
	}
}

func flatten(value any) []string {
	switch v := value.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := Stringify(item); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		if s, ok := Stringify(v); ok {
			return []string{s}
		}
		return nil
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
