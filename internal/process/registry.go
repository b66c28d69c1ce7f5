package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"

	"github.com/seantiz/asyncops/internal/model"
)

// Registry errors.
var (
	ErrDuplicateType       = errors.New("duplicate type registration")
	ErrUnknownPayloadType  = errors.New("unknown payload type")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch")
)

// TypeInfo describes one registered payload/processor pair.
type TypeInfo struct {
	PayloadType string `json:"payload_type"`
	ProcessType string `json:"process_type"`
	GoType      string `json:"go_type"`
}

// Entry is a resolved payload/processor pair.
type Entry struct {
	PayloadType string
	ProcessType string

	goType     reflect.Type
	newPayload func() model.Payload
	factory    Factory
}

// NewPayload returns a zero payload of the entry's type.
func (e Entry) NewPayload() model.Payload {
	return e.newPayload()
}

// NewProcessor builds a processor for p.
func (e Entry) NewProcessor(p model.Payload) (Processor, error) {
	return e.factory(p)
}

// Accepts reports whether p has the Go type registered for this entry.
func (e Entry) Accepts(p model.Payload) bool {
	return reflect.TypeOf(p) == e.goType
}

type payloadDef struct {
	goType     reflect.Type
	newPayload func() model.Payload
}

type processorDef struct {
	processType string
	factory     Factory
}

// Registry maps payload type names to their payload constructors and
// processor factories. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	payloads   map[string]payloadDef
	processors map[string]processorDef
	byGoType   map[reflect.Type]string
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		payloads:   make(map[string]payloadDef),
		processors: make(map[string]processorDef),
		byGoType:   make(map[reflect.Type]string),
		logger:     logger.With("component", "registry"),
	}
}

// AddPayload registers a payload type under name. The first registration of
// a name or Go type wins; later ones are logged and rejected.
func (r *Registry) AddPayload(name string, newPayload func() model.Payload) error {
	if name == "" || newPayload == nil {
		return errors.New("payload type name and constructor are required")
	}
	goType := reflect.TypeOf(newPayload())

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payloads[name]; ok {
		r.logger.Warn("payload type already registered, ignoring", "payload_type", name)
		return fmt.Errorf("%w: payload %q", ErrDuplicateType, name)
	}
	if existing, ok := r.byGoType[goType]; ok {
		r.logger.Warn("go type already registered under another name, ignoring",
			"payload_type", name, "registered_as", existing, "go_type", goType.String())
		return fmt.Errorf("%w: %s already registered as %q", ErrDuplicateType, goType, existing)
	}

	r.payloads[name] = payloadDef{goType: goType, newPayload: newPayload}
	r.byGoType[goType] = name
	return nil
}

// AddProcessor binds a processor factory to a payload type name.
func (r *Registry) AddProcessor(payloadType, processType string, f Factory) error {
	if payloadType == "" || f == nil {
		return errors.New("payload type name and factory are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.processors[payloadType]; ok {
		r.logger.Warn("processor already registered for payload type, ignoring",
			"payload_type", payloadType, "process_type", processType, "registered", existing.processType)
		return fmt.Errorf("%w: processor for %q", ErrDuplicateType, payloadType)
	}

	r.processors[payloadType] = processorDef{processType: processType, factory: f}
	return nil
}

// Register binds payload type P to a processor constructor in one call.
func Register[P model.Payload](r *Registry, payloadType, processType string, newPayload func() P, newProcessor func(P) Processor) error {
	if err := r.AddPayload(payloadType, func() model.Payload { return newPayload() }); err != nil {
		return err
	}
	return r.AddProcessor(payloadType, processType, func(p model.Payload) (Processor, error) {
		typed, ok := p.(P)
		if !ok {
			return nil, fmt.Errorf("%w: %q builds from %T, got %T", ErrPayloadTypeMismatch, payloadType, *new(P), p)
		}
		return newProcessor(typed), nil
	})
}

// Validate drops payload types without a processor and processors without a
// payload type, logging a warning for each. It returns the dropped names.
func (r *Registry) Validate() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dropped []string
	for name, def := range r.payloads {
		if _, ok := r.processors[name]; !ok {
			r.logger.Warn("dropping payload type without processor", "payload_type", name)
			delete(r.payloads, name)
			delete(r.byGoType, def.goType)
			dropped = append(dropped, name)
		}
	}
	for name, def := range r.processors {
		if _, ok := r.payloads[name]; !ok {
			r.logger.Warn("dropping processor without payload type", "payload_type", name, "process_type", def.processType)
			delete(r.processors, name)
			dropped = append(dropped, name)
		}
	}
	sort.Strings(dropped)
	return dropped
}

// Lookup returns the pair registered for the payload type name. Only complete
// pairs are ever returned.
func (r *Registry) Lookup(payloadType string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pd, ok := r.payloads[payloadType]
	if !ok {
		return Entry{}, false
	}
	proc, ok := r.processors[payloadType]
	if !ok {
		return Entry{}, false
	}
	return Entry{
		PayloadType: payloadType,
		ProcessType: proc.processType,
		goType:      pd.goType,
		newPayload:  pd.newPayload,
		factory:     proc.factory,
	}, true
}

// Exists reports whether a complete pair is registered for payloadType.
func (r *Registry) Exists(payloadType string) bool {
	_, ok := r.Lookup(payloadType)
	return ok
}

// NameOf returns the name p's Go type was registered under.
func (r *Registry) NameOf(p model.Payload) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.byGoType[reflect.TypeOf(p)]
	return name, ok
}

// List returns every complete pair, sorted by payload type name.
func (r *Registry) List() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]TypeInfo, 0, len(r.payloads))
	for name, pd := range r.payloads {
		proc, ok := r.processors[name]
		if !ok {
			continue
		}
		infos = append(infos, TypeInfo{
			PayloadType: name,
			ProcessType: proc.processType,
			GoType:      pd.goType.String(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].PayloadType < infos[j].PayloadType
	})
	return infos
}

// Decode builds a typed payload of the named type from JSON.
func (r *Registry) Decode(payloadType string, data []byte) (model.Payload, error) {
	e, ok := r.Lookup(payloadType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPayloadType, payloadType)
	}
	p := e.NewPayload()
	if len(data) > 0 {
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", payloadType, err)
		}
	}
	p.Base().PayloadType = payloadType
	return p, nil
}
