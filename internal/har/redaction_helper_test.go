package har

import "github.com/brennhill/snapo-core/internal/redaction"

func newTestRedactor() *redaction.Engine {
	return redaction.New()
}
