// Package schema validates inbound request bodies against embedded JSON
// Schema contracts before they are decoded into typed values. A body that
// violates its contract is rejected as a whole with every violation listed.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/common"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// Kind names a request contract.
type Kind string

const (
	KindSnapshot    Kind = "snapshot"
	KindPreferences Kind = "preferences"
	KindLogin       Kind = "login"
	KindTask        Kind = "task"
)

var kinds = []Kind{KindSnapshot, KindPreferences, KindLogin, KindTask}

// Validator holds the compiled contracts. It is safe for concurrent use.
type Validator struct {
	schemas map[Kind]*jsonschema.Schema
	printer *message.Printer
}

// NewValidator compiles every embedded contract. Format assertions are on,
// so date-time fields must be RFC 3339 timestamps.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	c.AssertFormat()

	for _, k := range kinds {
		name := string(k) + ".json"
		b, err := schemaFiles.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
		if err != nil {
			return nil, fmt.Errorf("unmarshal schema %s: %w", name, err)
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("add schema resource %s: %w", name, err)
		}
	}

	v := &Validator{
		schemas: make(map[Kind]*jsonschema.Schema, len(kinds)),
		printer: message.NewPrinter(language.English),
	}
	for _, k := range kinds {
		s, err := c.Compile(string(k) + ".json")
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", k, err)
		}
		v.schemas[k] = s
	}
	return v, nil
}

// Decode validates raw against the contract for k and, only if it is valid,
// unmarshals it into dst. Contract failures are *common.ValidationError.
func (v *Validator) Decode(k Kind, raw []byte, dst any) error {
	s, ok := v.schemas[k]
	if !ok {
		return fmt.Errorf("unknown schema kind %q", k)
	}

	// jsonschema.UnmarshalJSON keeps numbers as json.Number, which the
	// validator requires.
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return invalid("", "malformed JSON: "+err.Error())
	}

	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return &common.ValidationError{Violations: v.violations(ve)}
		}
		return fmt.Errorf("validate %s: %w", k, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return invalid("", "cannot decode: "+err.Error())
	}
	return nil
}

func invalid(field, reason string) error {
	return &common.ValidationError{Violations: []common.FieldViolation{{Field: field, Reason: reason}}}
}

func (v *Validator) violations(root *jsonschema.ValidationError) []common.FieldViolation {
	var out []common.FieldViolation
	v.collect(root, &out)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Field != out[j].Field {
			return out[i].Field < out[j].Field
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}

func (v *Validator) collect(e *jsonschema.ValidationError, out *[]common.FieldViolation) {
	if len(e.Causes) > 0 {
		for _, c := range e.Causes {
			v.collect(c, out)
		}
		return
	}

	field := pointer(e.InstanceLocation)
	if req, ok := e.ErrorKind.(*kind.Required); ok {
		for _, m := range req.Missing {
			*out = append(*out, common.FieldViolation{Field: field + "/" + escape(m), Reason: "is required"})
		}
		return
	}
	*out = append(*out, common.FieldViolation{Field: field, Reason: e.ErrorKind.LocalizedString(v.printer)})
}

// pointer renders an instance location as an RFC 6901 JSON pointer.
func pointer(loc []string) string {
	if len(loc) == 0 {
		return ""
	}
	parts := make([]string, len(loc))
	for i, p := range loc {
		parts[i] = escape(p)
	}
	return "/" + strings.Join(parts, "/")
}

func escape(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}
