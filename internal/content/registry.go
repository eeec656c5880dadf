package content

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Definition describes one registered content variant: how its payload is
// decoded and validated, and which upload policy guards its files. All
// variant dispatch goes through this registry; callers never branch on kind
// themselves.
type Definition struct {
	Kind   Kind
	Upload *FilePolicy
	decode func(raw json.RawMessage) (Payload, error)
	// serverOwned lists JSON keys the server derives itself, such as stored
	// file references and pipeline state. They are stripped from every
	// client-supplied document before decoding.
	serverOwned []string
}

// FileBacked reports whether payloads of this variant own stored blobs.
func (d Definition) FileBacked() bool { return d.Upload != nil }

var registry = map[Kind]Definition{
	KindVideo: {
		Kind:        KindVideo,
		Upload:      videoUploadPolicy,
		decode:      decodeInto[VideoPayload],
		serverOwned: []string{"source_key", "playlist_key", "duration_seconds", "status", "failure_reason"},
	},
	KindDocument: {
		Kind:        KindDocument,
		Upload:      documentUploadPolicy,
		decode:      decodeInto[DocumentPayload],
		serverOwned: []string{"file_key", "file_type", "file_size"},
	},
	KindQuiz: {
		Kind: KindQuiz,
		decode: func(raw json.RawMessage) (Payload, error) {
			// Defaults match the original platform's quiz settings.
			p := QuizPayload{PassingScore: 70, TimeLimitMinutes: 30}
			if err := unmarshalPayload(raw, &p); err != nil {
				return nil, err
			}
			return p, nil
		},
	},
	KindHTML: {
		Kind:   KindHTML,
		decode: decodeInto[HTMLPayload],
	},
	KindLive: {
		Kind:   KindLive,
		decode: decodeInto[LivePayload],
	},
	KindAssignment: {
		Kind:   KindAssignment,
		decode: decodeInto[AssignmentPayload],
	},
}

// Lookup resolves the definition for a variant kind.
func Lookup(kind Kind) (Definition, error) {
	def, ok := registry[kind]
	if !ok {
		return Definition{}, &ValidationError{
			Reason:  ReasonUnknownKind,
			Field:   "kind",
			Message: fmt.Sprintf("unknown content kind %q", kind),
		}
	}
	return def, nil
}

// Decode parses and validates a raw payload document for the given kind.
// Server-owned fields in the document are ignored.
func Decode(kind Kind, raw json.RawMessage) (Payload, error) {
	payload, err := DecodePartial(kind, raw)
	if err != nil {
		return nil, err
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return payload, nil
}

// DecodePartial parses a raw payload document without validating it. Callers
// that bind derived fields afterwards, such as stored file keys, run Validate
// themselves once the payload is complete.
func DecodePartial(kind Kind, raw json.RawMessage) (Payload, error) {
	def, err := Lookup(kind)
	if err != nil {
		return nil, err
	}

	raw, err = def.stripServerOwned(raw)
	if err != nil {
		return nil, err
	}

	return def.decode(raw)
}

// Merge applies a partial payload document on top of an existing payload of
// the same kind and validates the result. Fields absent from raw keep their
// current values; server-owned fields keep them regardless of what the
// document says.
func Merge(existing Payload, raw json.RawMessage) (Payload, error) {
	def, err := Lookup(existing.Kind())
	if err != nil {
		return nil, err
	}

	raw, err = def.stripServerOwned(raw)
	if err != nil {
		return nil, err
	}

	switch p := existing.(type) {
	case VideoPayload:
		return mergePayload(p, raw)
	case DocumentPayload:
		return mergePayload(p, raw)
	case QuizPayload:
		return mergePayload(p, raw)
	case HTMLPayload:
		return mergePayload(p, raw)
	case LivePayload:
		return mergePayload(p, raw)
	case AssignmentPayload:
		return mergePayload(p, raw)
	default:
		return nil, &ValidationError{
			Reason:  ReasonUnknownKind,
			Field:   "kind",
			Message: fmt.Sprintf("unknown content kind %q", existing.Kind()),
		}
	}
}

func mergePayload[P Payload](p P, raw json.RawMessage) (Payload, error) {
	if err := unmarshalPayload(raw, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Kinds returns the registered variant kinds in stable order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func decodeInto[P Payload](raw json.RawMessage) (Payload, error) {
	var p P
	if err := unmarshalPayload(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// stripServerOwned removes the variant's server-owned keys from a client
// document so forged file references or pipeline state never reach a payload.
func (d Definition) stripServerOwned(raw json.RawMessage) (json.RawMessage, error) {
	if len(d.serverOwned) == 0 || len(raw) == 0 {
		return raw, nil
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &ValidationError{
			Reason:  ReasonInvalidField,
			Field:   "content",
			Message: fmt.Sprintf("malformed payload: %v", err),
		}
	}

	stripped := false
	for _, key := range d.serverOwned {
		if _, ok := doc[key]; ok {
			delete(doc, key)
			stripped = true
		}
	}
	if !stripped {
		return raw, nil
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return out, nil
}

func unmarshalPayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &ValidationError{
			Reason:  ReasonInvalidField,
			Field:   "content",
			Message: fmt.Sprintf("malformed payload: %v", err),
		}
	}
	return nil
}
