package application

import (
	"sort"
	"strings"
)

// DefaultNamespaces are the context path segments that mark a Prow lane.
var DefaultNamespaces = []string{"prow"}

// DefaultExcludedMarkers drop index-build and image-build contexts, which are
// not redundant test lanes.
var DefaultExcludedMarkers = []string{"ci-index", "images"}

// Classifier decides whether a status context is a redundant test lane and
// splits it into its test group and provider. It has no mutable state.
type Classifier struct {
	namespaces      map[string]bool
	excludedMarkers []string
	knownProviders  []string // Longest first.
}

// NewClassifier creates a Classifier. An empty knownProviders list selects the
// "last hyphen is the provider boundary" rule; otherwise only contexts ending in
// one of the known providers are accepted.
func NewClassifier(namespaces, excludedMarkers, knownProviders []string) *Classifier {
	ns := make(map[string]bool, len(namespaces))
	for _, n := range namespaces {
		n = strings.Trim(strings.TrimSpace(n), "/")
		if n != "" {
			ns[n] = true
		}
	}

	var markers []string
	for _, m := range excludedMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, m)
		}
	}

	var providers []string
	for _, p := range knownProviders {
		if p = strings.TrimSpace(p); p != "" {
			providers = append(providers, p)
		}
	}
	sort.SliceStable(providers, func(i, j int) bool {
		return len(providers[i]) > len(providers[j])
	})

	return &Classifier{
		namespaces:      ns,
		excludedMarkers: markers,
		knownProviders:  providers,
	}
}

// Classify returns the test group and provider for a status context. ok is
// false when the context is excluded, outside the CI namespace, or cannot be
// decomposed.
func (c *Classifier) Classify(context string) (testGroup, provider string, ok bool) {
	for _, marker := range c.excludedMarkers {
		if strings.Contains(context, marker) {
			return "", "", false
		}
	}

	segments := strings.Split(context, "/")
	if len(segments) < 2 || !c.inNamespace(segments[:len(segments)-1]) {
		return "", "", false
	}

	name := segments[len(segments)-1]
	if len(c.knownProviders) > 0 {
		return c.splitKnownProvider(name)
	}

	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func (c *Classifier) inNamespace(prefix []string) bool {
	for _, segment := range prefix {
		if c.namespaces[segment] {
			return true
		}
	}
	return false
}

func (c *Classifier) splitKnownProvider(name string) (string, string, bool) {
	for _, p := range c.knownProviders {
		suffix := "-" + p
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return strings.TrimSuffix(name, suffix), p, true
		}
	}
	return "", "", false
}
