package bodycapture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
)

// RenderMultipart implements spec.md §4.2 rule 7: split a multipart/form-data
// body on its boundary, parse each part's Content-Disposition/Content-Type,
// and render a human-readable text reconstruction — one header line per
// part ("Part name=... [filename=...] [(content-type)]") followed by the
// part's decoded text or base64 payload, parts separated by a blank line.
//
// Boundary splitting and per-part header parsing is delegated to stdlib
// mime/multipart.Reader rather than hand-rolled, since boundary quoting,
// trailing whitespace, and preamble/epilogue handling are exactly what that
// reader already gets right; only the rendering format below is new.
func RenderMultipart(data []byte, boundary string) string {
	reader := multipart.NewReader(bytes.NewReader(data), boundary)
	var b strings.Builder
	first := true
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		body, _ := io.ReadAll(part)
		if !first {
			b.WriteString("\n")
		}
		first = false
		writePart(&b, part.FormName(), part.FileName(), part.Header.Get("Content-Type"), body)
	}
	return b.String()
}

func writePart(b *strings.Builder, name, filename, contentType string, body []byte) {
	if contentType == "" && filename != "" {
		contentType = "application/octet-stream"
	}

	b.WriteString("Part name=\"")
	b.WriteString(name)
	b.WriteString("\"")
	if filename != "" {
		fmt.Fprintf(b, " filename=\"%s\"", filename)
	}
	if contentType != "" && contentType != "text/plain" {
		fmt.Fprintf(b, " (%s)", contentType)
	}
	b.WriteString("\n")

	if filename != "" || (contentType != "" && !IsTextLike(contentType)) {
		b.WriteString(base64.StdEncoding.EncodeToString(body))
	} else {
		b.Write(body)
	}
	b.WriteString("\n")
}
