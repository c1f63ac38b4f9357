package protocol

import (
	"errors"
	"fmt"
	"strconv"

	"ibflow/models"
)

// ErrUnknownMessage is returned when a message name has no spec in the
// registry. This is a programmer error; nothing is sent.
var ErrUnknownMessage = errors.New("unknown outgoing message")

// EncodingError reports a field that could not be rendered for the
// wire. Encoding fails fast; no partial message is ever produced.
type EncodingError struct {
	Message string
	Key     string
	Err     error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s field %q: %v", e.Message, e.Key, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Transform maps a resolved field value to its wire representation,
// e.g. a symbolic market data type name to its integer code.
type Transform func(v any) (any, error)

// FieldSpec describes one field of an outgoing message. Fields are
// encoded in declaration order; order is part of the wire contract.
//
// A spec with Variant set expands into the contract field tuple instead
// of a single token; Key then names the Fields entry holding the
// *models.Contract.
type FieldSpec struct {
	Key        string
	Default    any
	Transform  Transform
	MinVersion int // omit the field entirely below this server version
	Variant    ContractVariant
	Extras     []ContractField
}

// MessageSpec ties a message name to its wire id, message version and
// ordered field specs.
type MessageSpec struct {
	Name    string
	ID      int
	Version int // versions <= 0 emit no version token (unversioned messages)
	Fields  []FieldSpec
}

// Registry is the process-wide table of outgoing message specs. It is
// built once at startup and read-only afterwards.
type Registry struct {
	specs map[string]*MessageSpec
	names []string
}

// NewRegistry builds a registry from the given specs. Duplicate names
// are rejected; the table preserves declaration order for listing.
func NewRegistry(specs ...MessageSpec) (*Registry, error) {
	r := &Registry{specs: make(map[string]*MessageSpec, len(specs))}
	for i := range specs {
		spec := specs[i]
		if spec.Name == "" {
			return nil, fmt.Errorf("message spec without name (id %d)", spec.ID)
		}
		if _, dup := r.specs[spec.Name]; dup {
			return nil, fmt.Errorf("duplicate message spec %q", spec.Name)
		}
		r.specs[spec.Name] = &spec
		r.names = append(r.names, spec.Name)
	}
	return r, nil
}

// Spec returns the spec registered under name.
func (r *Registry) Spec(name string) (*MessageSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names lists the registered message names in declaration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Encode resolves the named message against the provided fields and
// returns the ordered wire token sequence, led by the message id and,
// for versioned messages, the message version.
//
// Per field spec, in declaration order: a version-gated field is
// omitted when the server version is below its threshold; otherwise the
// value is the provided one if present, else the default; a transform,
// when set, maps the resolved value to its wire form. Fields with
// neither value nor default encode as the empty wire value.
func (r *Registry) Encode(name string, fields Fields, serverVersion int) ([]string, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, name)
	}

	out := make([]string, 0, len(spec.Fields)+2)
	out = append(out, strconv.Itoa(spec.ID))
	if spec.Version > 0 {
		out = append(out, strconv.Itoa(spec.Version))
	}

	for _, fs := range spec.Fields {
		if fs.MinVersion > 0 && !Supports(serverVersion, fs.MinVersion) {
			continue
		}

		if fs.Variant != VariantNone {
			c, _ := fields[fs.Key].(*models.Contract)
			if c == nil {
				return nil, &EncodingError{Message: name, Key: fs.Key, Err: errors.New("missing contract")}
			}
			tuple, err := EncodeContract(fs.Variant, c, serverVersion, fs.Extras...)
			if err != nil {
				return nil, &EncodingError{Message: name, Key: fs.Key, Err: err}
			}
			out = append(out, tuple...)
			continue
		}

		v, provided := fields[fs.Key]
		if !provided || v == nil {
			v = fs.Default
		}
		if fs.Transform != nil {
			tv, err := fs.Transform(v)
			if err != nil {
				return nil, &EncodingError{Message: name, Key: fs.Key, Err: err}
			}
			v = tv
		}
		token, err := wireValue(v)
		if err != nil {
			return nil, &EncodingError{Message: name, Key: fs.Key, Err: err}
		}
		out = append(out, token)
	}

	return out, nil
}
