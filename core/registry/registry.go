// ABOUTME: Source registry resolves the upstream catalogue into ready-to-use descriptors
// ABOUTME: Missing credentials are recorded per source instead of failing the whole service

package registry

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"listings-aggregator-api/core/domain"
	coreerrors "listings-aggregator-api/core/errors"
)

// LookupFunc resolves a configuration key, typically os.LookupEnv
type LookupFunc func(key string) (string, bool)

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Registry is the immutable catalogue of upstream sources
type Registry struct {
	sources  []domain.Source
	problems map[string]*coreerrors.ConfigurationError
}

// New resolves ${VAR} placeholders in every source's headers and params.
// A source whose credential is absent stays registered but carries a
// ConfigurationError, surfaced through Problem and the health monitor.
func New(sources []domain.Source, lookup LookupFunc) *Registry {
	r := &Registry{
		sources:  make([]domain.Source, 0, len(sources)),
		problems: make(map[string]*coreerrors.ConfigurationError),
	}

	for _, src := range sources {
		resolved, problem := resolve(src, lookup)
		r.sources = append(r.sources, resolved)
		if problem != nil {
			r.problems[src.Name] = problem
		}
	}

	sort.Slice(r.sources, func(i, j int) bool {
		return r.sources[i].Name < r.sources[j].Name
	})

	return r
}

// Sources returns a copy of every registered descriptor, ordered by name
func (r *Registry) Sources() []domain.Source {
	out := make([]domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Names returns every registered source name, ordered
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		names = append(names, s.Name)
	}
	return names
}

// Lookup returns the descriptor registered under name
func (r *Registry) Lookup(name string) (domain.Source, bool) {
	for _, s := range r.sources {
		if s.Name == name {
			return s, true
		}
	}
	return domain.Source{}, false
}

// Problem returns the configuration error recorded for a source, or nil
func (r *Registry) Problem(name string) error {
	if p, ok := r.problems[name]; ok {
		return p
	}
	return nil
}

// Problems returns every recorded configuration error keyed by source
func (r *Registry) Problems() map[string]*coreerrors.ConfigurationError {
	out := make(map[string]*coreerrors.ConfigurationError, len(r.problems))
	for k, v := range r.problems {
		out[k] = v
	}
	return out
}

func resolve(src domain.Source, lookup LookupFunc) (domain.Source, *coreerrors.ConfigurationError) {
	var problem *coreerrors.ConfigurationError
	note := func(key, msg string) {
		if problem == nil {
			problem = &coreerrors.ConfigurationError{Source: src.Name, Key: key, Message: msg}
		}
	}

	if u, err := url.Parse(src.URL); err != nil || u.Scheme == "" || u.Host == "" {
		note("url", "endpoint is not an absolute URL")
	}

	expand := func(value string) string {
		return placeholderPattern.ReplaceAllStringFunc(value, func(m string) string {
			key := placeholderPattern.FindStringSubmatch(m)[1]
			v, ok := lookupCredential(lookup, key)
			if !ok {
				note(key, "credential not set")
				return ""
			}
			return v
		})
	}

	out := src
	out.Headers = make(map[string]string, len(src.Headers))
	for k, v := range src.Headers {
		out.Headers[k] = expand(v)
	}
	out.Params = make(map[string]string, len(src.Params))
	for k, v := range src.Params {
		out.Params[k] = expand(v)
	}

	return out, problem
}

// lookupCredential treats empty values and "your_..._here" templates as unset
func lookupCredential(lookup LookupFunc, key string) (string, bool) {
	if lookup == nil {
		return "", false
	}
	v, ok := lookup(key)
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", false
	}
	if strings.HasPrefix(v, "your_") && strings.HasSuffix(v, "_here") {
		return "", false
	}
	return v, true
}
