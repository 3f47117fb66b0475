package embedding

import "fmt"

// Constructor builds a Provider from config.
type Constructor func(cfg Config) (Provider, error)

// Factory creates Provider instances from config.
type Factory struct {
	constructors map[string]Constructor
}

// NewFactory creates an empty factory. Backends are registered at the
// composition root.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[string]Constructor)}
}

// Register adds a backend constructor under the given name.
func (f *Factory) Register(name string, ctor Constructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config.
func (f *Factory) Create(cfg Config) (Provider, error) {
	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown embedding provider %q (registered: %v)", cfg.Provider, f.names())
	}
	return ctor(cfg)
}

func (f *Factory) names() []string {
	var out []string
	for k := range f.constructors {
		out = append(out, k)
	}
	return out
}

// RegisterBuiltins registers the remote and local backends.
func RegisterBuiltins(f *Factory) {
	f.Register(remoteProviderName, func(cfg Config) (Provider, error) {
		return NewRemote(cfg), nil
	})
	f.Register(localProviderName, func(cfg Config) (Provider, error) {
		return NewLocal(cfg.Dimensions), nil
	})
}
