package events

import (
	"encoding/json"
	stderrors "errors"
	"reflect"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gubancs/leafmap/pkg/errors"
	"github.com/gubancs/leafmap/pkg/logging"
)

type entry struct {
	typ    Type
	decode Decoder
}

// Registry maps wire names to event-type variants across every
// registered family. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]entry
	families map[Family][]Type
	logger   *zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for registration warnings.
func WithRegistryLogger(logger *zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry returns a registry preloaded with the core taxonomies.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := NewEmptyRegistry(opts...)
	for _, tx := range CoreTaxonomies() {
		r.MustRegister(tx)
	}
	return r
}

// NewEmptyRegistry returns a registry without any families.
func NewEmptyRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byName:   make(map[string]entry),
		families: make(map[Family][]Type),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger)
	return r
}

// Register adds every variant of tx. Registering the same family again
// is idempotent. A name already owned by a different family is rejected
// with a DuplicateError and the first registration keeps it; the other
// names of tx are still registered.
func (r *Registry) Register(tx Taxonomy) error {
	if tx.Family == "" {
		return errors.NewValidationError("family", tx.Family, "family name is required")
	}
	if len(tx.Types) == 0 {
		return errors.NewValidationError("types", tx.Family, "taxonomy declares no event types")
	}
	for _, t := range tx.Types {
		if t == nil || t.Name() == "" {
			return errors.NewValidationError("types", tx.Family, "event type name is required")
		}
		if t.Family() != tx.Family {
			return errors.NewValidationError("types", t.Name(), "event type belongs to family "+string(t.Family()))
		}
		// Types key listener maps on the bus.
		if !reflect.TypeOf(t).Comparable() {
			return errors.NewValidationError("types", t.Name(), "event type must be comparable")
		}
	}

	decode := tx.Decode
	if decode == nil {
		decode = DecodePlugin
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, t := range tx.Types {
		if existing, ok := r.byName[t.Name()]; ok && existing.typ.Family() != tx.Family {
			dup := errors.NewDuplicateError(t.Name(), string(existing.typ.Family()), string(tx.Family))
			r.logger.Warn().
				Str("event", t.Name()).
				Str("family", string(existing.typ.Family())).
				Str("rejected_family", string(tx.Family)).
				Msg("Duplicate event type name, keeping first registration")
			errs = append(errs, dup)
			continue
		}
		if _, ok := r.byName[t.Name()]; !ok {
			r.families[tx.Family] = append(r.families[tx.Family], t)
		}
		r.byName[t.Name()] = entry{typ: t, decode: decode}
	}

	r.logger.Debug().
		Str("family", string(tx.Family)).
		Int("types", len(tx.Types)-len(errs)).
		Msg("Registered event family")

	return stderrors.Join(errs...)
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tx Taxonomy) {
	if err := r.Register(tx); err != nil {
		panic(err)
	}
}

// Resolve returns the variant registered under name.
func (r *Registry) Resolve(name string) (Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byName[name]
	return e.typ, ok
}

// Decode resolves name and builds the typed event for target from payload.
func (r *Registry) Decode(target Target, name string, payload json.RawMessage) (Event, error) {
	r.mu.RLock()
	e, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("event type", name)
	}
	return e.decode(NewHeader(target, e.typ), payload)
}

// Families returns the registered family names in sorted order.
func (r *Registry) Families() []Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Family, 0, len(r.families))
	for f := range r.families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Types returns the variants of family in registration order.
func (r *Registry) Types(family Family) []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Type(nil), r.families[family]...)
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Register adds tx to the default registry.
func Register(tx Taxonomy) error {
	return defaultRegistry.Register(tx)
}

// Resolve looks name up in the default registry.
func Resolve(name string) (Type, bool) {
	return defaultRegistry.Resolve(name)
}
