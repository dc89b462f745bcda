package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
)

// Multipart is an encoded multipart/form-data body. The client sends it with
// its own boundary content type and never JSON-encodes it.
type Multipart struct {
	body        []byte
	contentType string
}

type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Content     io.Reader
}

func NewMultipart(fields map[string]string, files ...FilePart) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", name, err)
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("create part %s: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, fmt.Errorf("copy part %s: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Multipart{body: buf.Bytes(), contentType: w.FormDataContentType()}, nil
}

func (m *Multipart) ContentType() string {
	return m.contentType
}
