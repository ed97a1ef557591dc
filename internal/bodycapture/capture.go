package bodycapture

import (
	"bytes"
	"encoding/base64"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Encoding discriminates how Result.Bytes is encoded for transport, mirroring
// record.BodyEncoding without importing the record package (bodycapture sits
// below record in the dependency graph).
type Encoding string

const (
	EncodingNone   Encoding = "none"
	EncodingBase64 Encoding = "base64"
)

// Result is the output of Capture: either populated, or Captured=false when
// the body was absent or capture failed outright.
type Result struct {
	Captured       bool
	Text           string // decoded text when Encoding==EncodingNone
	Base64         string // base64 payload when Encoding==EncodingBase64
	Encoding       Encoding
	Size           int // decoded/original byte size, pre-truncation
	TruncatedBytes int // bytes read but discarded past maxBytes
	Preview        string
}

// Capture reads up to maxBytes from r, classifies and decodes it per
// spec.md §4.2, and returns a Result. contentType and contentEncoding are
// the raw header values as observed on the wire ("" if absent).
//
// Rule order follows spec.md §4.2 exactly:
//  1. text-like classification from contentType
//  2. non-identity Content-Encoding forces base64 regardless of type
//  3. text-like + identity: charset-decode, encoding=none
//  4. else: base64
//  5. absent content-type: 85%-printable heuristic decides text vs base64
func Capture(r io.Reader, contentType, contentEncoding string, maxBytes, previewBytes int) (Result, error) {
	if r == nil {
		return Result{}, nil
	}
	if maxBytes < 0 {
		maxBytes = 0
	}

	if maxBytes == 0 {
		total, _ := io.Copy(io.Discard, r)
		if total == 0 {
			return Result{}, nil
		}
		return Result{TruncatedBytes: int(total)}, nil
	}

	limited := io.LimitReader(r, int64(maxBytes)+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, nil
	}

	truncated := 0
	if len(data) > maxBytes {
		overflow := len(data) - maxBytes
		data = data[:maxBytes]
		// Drain the remainder to learn the true total size; callers on a
		// bounded maxBytes care about truncatedBytes, not the full body.
		rest, _ := io.Copy(io.Discard, r)
		truncated = overflow + int(rest)
	}

	res := FromBytes(data, contentType, contentEncoding, previewBytes)
	res.TruncatedBytes = truncated
	return res, nil
}

// FromBytes classifies and decodes data that has already been captured and
// bounded elsewhere (e.g. by an Accumulator tee on a duplex request body, or
// by joining SSE frame bytes for HAR reconstruction), applying the same
// rule order as Capture without re-reading or re-truncating. TruncatedBytes
// on the result is always 0; callers that tracked truncation separately
// should set it themselves.
func FromBytes(data []byte, contentType, contentEncoding string, previewBytes int) Result {
	if len(data) == 0 {
		return Result{}
	}

	nonIdentity := contentEncoding != "" && !strings.EqualFold(contentEncoding, "identity")

	var textLike bool
	if contentType != "" {
		textLike = IsTextLike(contentType)
	} else {
		textLike = isLikelyTextBytes(data)
	}

	if nonIdentity || !textLike {
		b64 := base64.StdEncoding.EncodeToString(data)
		return Result{
			Captured: true,
			Base64:   b64,
			Encoding: EncodingBase64,
			Size:     len(data),
			Preview:  previewString(b64, previewBytes),
		}
	}

	decoded, decErr := decodeCharset(data, charsetParam(contentType))
	if decErr != nil {
		// Charset lookup/decode failure degrades to base64 rather than
		// surfacing mojibake as if it were a clean decode.
		b64 := base64.StdEncoding.EncodeToString(data)
		return Result{
			Captured: true,
			Base64:   b64,
			Encoding: EncodingBase64,
			Size:     len(data),
			Preview:  previewString(b64, previewBytes),
		}
	}

	return Result{
		Captured: true,
		Text:     decoded,
		Encoding: EncodingNone,
		Size:     len(data),
		Preview:  previewString(decoded, previewBytes),
	}
}

func decodeCharset(data []byte, charset string) (string, error) {
	if strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(data), nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", err
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func previewString(s string, previewChars int) string {
	if previewChars <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= previewChars {
		return s
	}
	return string(runes[:previewChars])
}

// bodylessStatuses are the HTTP statuses that are by-protocol bodyless per
// spec.md §4.4: 100..199, 204, 205, 304.
func IsBodylessStatus(status int) bool {
	if status >= 100 && status <= 199 {
		return true
	}
	return status == 204 || status == 205 || status == 304
}

// bytesReader is a small helper used by callers that already have the full
// body in memory (e.g. tee accumulators) and want to run it back through
// Capture without an extra copy.
func BytesReader(b []byte) io.Reader { return bytes.NewReader(b) }
