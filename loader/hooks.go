package loader

import "context"

// Request is a single import to resolve.
type Request struct {
	Specifier string
	// ParentURL is the URL of the importing module. It is empty only for
	// the program entry.
	ParentURL  string
	Attributes map[string]string
}

// IsEntry reports whether the request names the program entry.
func (r Request) IsEntry() bool {
	return r.ParentURL == ""
}

// Resolution is the module identity a request resolved to.
type Resolution struct {
	URL    string `json:"url"`
	Format Format `json:"format"`
	// ShortCircuit forbids later resolvers in the chain from overriding
	// this result.
	ShortCircuit bool `json:"shortCircuit"`
}

// LoadContext travels from resolution into loading. Hooks may mutate it.
type LoadContext struct {
	Format     Format
	Attributes map[string]string
}

// Loaded is the source a module executes.
type Loaded struct {
	Format       Format
	Source       []byte
	ShortCircuit bool
}

// NextResolve is the next resolver in the host's chain.
type NextResolve func(ctx context.Context, req Request) (Resolution, error)

// NextLoad is the next loader in the host's chain.
type NextLoad func(ctx context.Context, url string, lc *LoadContext) (Loaded, error)
