package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"

	"github.com/melibackend/retail-dashboard/internal/models"
)

// multipartBody sends the JSON fields of value as form fields plus one file
// part. Nil and nested values are skipped; booleans are sent as 1/0.
type multipartBody struct {
	value     any
	fileField string
	file      *models.FileUpload

	boundary string
}

func newMultipartBody(value any, fileField string, file *models.FileUpload) *multipartBody {
	return &multipartBody{value: value, fileField: fileField, file: file}
}

func (b *multipartBody) contentType() string {
	return "multipart/form-data; boundary=" + b.boundary
}

func (b *multipartBody) reader() (io.Reader, error) {
	fields, err := formFields(b.value)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	b.boundary = w.Boundary()

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", k, err)
		}
	}

	if b.file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(b.fileField), escapeQuotes(b.file.Filename)))
		contentType := b.file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create file part: %w", err)
		}
		if _, err := part.Write(b.file.Data); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, nil
}

// quoteEscaper matches what mime/multipart applies to quoted header params;
// line breaks are dropped so a filename cannot start a new header.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"", "\r", "", "\n", "")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// formFields flattens value's JSON representation into string form fields
func formFields(value any) (map[string]string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal form fields: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode form fields: %w", err)
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			if val {
				fields[k] = "1"
			} else {
				fields[k] = "0"
			}
		}
	}
	return fields, nil
}
