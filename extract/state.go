// Package extract recovers raw product items from listing pages, either from
// a structured state blob embedded in the markup or from the product cards
// themselves.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/titanous/json5"
)

// ErrNoMatch is returned by a Detector whose signature does not occur in the
// document. It is an expected outcome, not a failure.
var ErrNoMatch = errors.New("extract: no match")

// DecodeError reports a signature that matched but could not be decoded,
// even after repair.
type DecodeError struct {
	Detector string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Detector, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Detector pairs a structural signature with the decoder for what it
// captures. The pattern's first group must capture the object literal.
type Detector struct {
	Name    string
	Pattern *regexp.Regexp
	Decode  func([]byte) (any, error)
}

// Detect finds the signature in doc and decodes the captured object. A
// failed decode is retried once with control characters stripped.
func (d Detector) Detect(doc []byte) (map[string]any, error) {
	m := d.Pattern.FindSubmatch(doc)
	if m == nil {
		return nil, ErrNoMatch
	}

	state, err := decodeObject(d.Decode, m[1])
	if err == nil {
		return state, nil
	}
	state, retryErr := decodeObject(d.Decode, stripControl(m[1]))
	if retryErr != nil {
		return nil, &DecodeError{Detector: d.Name, Err: err}
	}
	return state, nil
}

func decodeObject(decode func([]byte) (any, error), raw []byte) (map[string]any, error) {
	v, err := decode(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("state is %T, want object", v)
	}
	return obj, nil
}

func stripControl(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, c := range raw {
		if c < 0x20 || c == 0x7f {
			continue
		}
		out = append(out, c)
	}
	return out
}

func decodeJSON(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeJSLiteral accepts the relaxed object syntax of inline scripts
// (unquoted keys, single quotes, trailing commas).
func decodeJSLiteral(raw []byte) (any, error) {
	var v any
	if err := json5.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// DefaultDetectors returns the embedded-state signatures in priority order.
func DefaultDetectors() []Detector {
	return []Detector{
		{
			Name:    "state",
			Pattern: regexp.MustCompile(`(?s)__STATE__\s*=\s*(\{.*?\})\s*;\s*</script>`),
			Decode:  decodeJSLiteral,
		},
		{
			Name:    "apollo_state",
			Pattern: regexp.MustCompile(`(?s)__APOLLO_STATE__\s*=\s*(\{.*?\})\s*;\s*</script>`),
			Decode:  decodeJSLiteral,
		},
		{
			Name:    "next_data_before_apollo",
			Pattern: regexp.MustCompile(`(?s)"__NEXT_DATA__"\s*:\s*(\{.*?\})\s*,\s*"__APOLLO_STATE__"`),
			Decode:  decodeJSON,
		},
		{
			Name:    "next_data_inline",
			Pattern: regexp.MustCompile(`(?s)"__NEXT_DATA__"\s*:\s*(\{.*?\})\s*</script>`),
			Decode:  decodeJSON,
		},
		{
			Name:    "next_data_script",
			Pattern: regexp.MustCompile(`(?s)<script[^>]*id="__NEXT_DATA__"[^>]*>\s*(\{.*?\})\s*</script>`),
			Decode:  decodeJSON,
		},
	}
}

// StateExtractor locates and decodes the first embedded state blob of a
// document.
type StateExtractor struct {
	detectors []Detector
}

// NewStateExtractor builds an extractor; with no detectors the defaults are
// used.
func NewStateExtractor(detectors ...Detector) *StateExtractor {
	if len(detectors) == 0 {
		detectors = DefaultDetectors()
	}
	return &StateExtractor{detectors: detectors}
}

// Extract returns the first state object that matches and decodes. It
// reports false when the document carries no usable state.
func (e *StateExtractor) Extract(doc []byte) (map[string]any, bool) {
	for _, d := range e.detectors {
		state, err := d.Detect(doc)
		if err == nil {
			return state, true
		}
		if !errors.Is(err, ErrNoMatch) {
			slog.Debug("embedded state rejected",
				slog.String("detector", d.Name),
				slog.Any("error", err),
			)
		}
	}
	return nil, false
}
