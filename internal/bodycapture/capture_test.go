package bodycapture

import (
	"strings"
	"testing"
	"testing/quick"
)

func TestIsTextLike(t *testing.T) {
	cases := map[string]bool{
		"text/plain":                         true,
		"application/json":                   true,
		"application/json; charset=utf-8":    true,
		"application/xml":                    true,
		"application/x-www-form-urlencoded":  true,
		"application/octet-stream":           false,
		"image/png":                          false,
		"":                                   false,
		"application/graphql":                true,
		"text/csv; charset=iso-8859-1":       true,
	}
	for ct, want := range cases {
		if got := IsTextLike(ct); got != want {
			t.Errorf("IsTextLike(%q) = %v, want %v", ct, got, want)
		}
	}
}

// TestScenarioS1 is spec.md §8's plain JSON response scenario.
func TestScenarioS1(t *testing.T) {
	body := `{"a":1}`
	res, err := Capture(strings.NewReader(body), "application/json", "", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Captured || res.Encoding != EncodingNone || res.Text != body || res.Size != len(body) {
		t.Fatalf("got %+v", res)
	}
}

// TestScenarioS3 is spec.md §8's binary body scenario.
func TestScenarioS3(t *testing.T) {
	data := []byte{0x00, 0x01, 0x02, 0x03}
	res, err := Capture(strings.NewReader(string(data)), "application/octet-stream", "", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Captured || res.Encoding != EncodingBase64 {
		t.Fatalf("got %+v", res)
	}
	if res.Base64 != "AAECAw==" {
		t.Fatalf("Base64 = %q, want AAECAw==", res.Base64)
	}
	if res.Size != 4 {
		t.Fatalf("Size = %d, want 4", res.Size)
	}
}

func TestNonIdentityContentEncodingForcesBase64(t *testing.T) {
	res, err := Capture(strings.NewReader("hello world"), "text/plain", "gzip", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if res.Encoding != EncodingBase64 {
		t.Fatalf("Encoding = %v, want base64 for non-identity Content-Encoding", res.Encoding)
	}
}

func TestAbsentContentTypeHeuristic(t *testing.T) {
	res, err := Capture(strings.NewReader("just some plain ascii text"), "", "", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if res.Encoding != EncodingNone {
		t.Fatalf("Encoding = %v, want none for mostly-printable bytes with no content-type", res.Encoding)
	}

	binary := string([]byte{0x00, 0xFF, 0x01, 0xFE, 0x02, 0xFD, 0x03, 0xFC})
	res2, err := Capture(strings.NewReader(binary), "", "", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if res2.Encoding != EncodingBase64 {
		t.Fatalf("Encoding = %v, want base64 for mostly-unprintable bytes", res2.Encoding)
	}
}

// TestMaxBytesZero is spec.md §8's boundary case: maxBytes=0 yields no body
// and preserves truncatedBytes = total.
func TestMaxBytesZero(t *testing.T) {
	res, err := Capture(strings.NewReader("abcdefgh"), "text/plain", "", 0, 200)
	if err != nil {
		t.Fatal(err)
	}
	if res.Captured {
		t.Fatalf("expected no captured body for maxBytes=0, got %+v", res)
	}
	if res.TruncatedBytes != 8 {
		t.Fatalf("TruncatedBytes = %d, want 8", res.TruncatedBytes)
	}
}

func TestEmptyBody(t *testing.T) {
	res, err := Capture(strings.NewReader(""), "application/json", "", 1<<20, 200)
	if err != nil {
		t.Fatal(err)
	}
	if res.Captured {
		t.Fatalf("expected no captured body for empty reader, got %+v", res)
	}
}

// TestPropertyBodyCaptureAccounting verifies spec.md §8 property 6:
// len(bytes) + truncatedBytes == totalObservedBytes.
func TestPropertyBodyCaptureAccounting(t *testing.T) {
	f := func(data []byte, maxBytesOffset uint16) bool {
		maxBytes := int(maxBytesOffset)
		res, err := Capture(strings.NewReader(string(data)), "application/octet-stream", "", maxBytes, 0)
		if err != nil {
			return false
		}
		var capturedLen int
		if res.Captured {
			if res.Encoding == EncodingBase64 {
				decodedLen, decErr := decodedBase64Len(res.Base64)
				if decErr != nil {
					return false
				}
				capturedLen = decodedLen
			} else {
				capturedLen = len(res.Text)
			}
		}
		return capturedLen+res.TruncatedBytes == len(data)
	}
	cfg := &quick.Config{MaxCount: 500}
	if err := quick.Check(f, cfg); err != nil {
		t.Error(err)
	}
}

// TestScenarioS6 is spec.md §8's multipart form scenario.
func TestScenarioS6(t *testing.T) {
	raw := "--b\r\n" +
		"Content-Disposition: form-data; name=\"a\"\r\n" +
		"\r\n" +
		"hello\r\n" +
		"--b\r\n" +
		"Content-Disposition: form-data; name=\"file\"; filename=\"x.bin\"\r\n" +
		"\r\n" +
		"\xFF\r\n" +
		"--b--\r\n"

	rendered := RenderMultipart([]byte(raw), "b")
	if !strings.HasPrefix(rendered, "Part name=\"a\"\nhello\n\n") {
		t.Fatalf("rendered does not start with expected prefix, got: %q", rendered)
	}
	if !strings.HasSuffix(rendered, "Part name=\"file\" filename=\"x.bin\" (application/octet-stream)\n/w==\n") {
		t.Fatalf("rendered does not end with expected suffix, got: %q", rendered)
	}
}

func decodedBase64Len(s string) (int, error) {
	n := len(s)
	padding := strings.Count(s, "=")
	return (n/4)*3 - padding, nil
}
