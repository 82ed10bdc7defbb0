package manifest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dominikbraun/graph"
)

// DependsOnAnnotation names explicit apply-order dependencies:
// a comma-separated list of Kind/name entries that must be applied first.
const DependsOnAnnotation = "gantry.dev/depends-on"

// kindRank orders kinds so workloads land before the routing that targets
// them. Lower ranks apply first.
var kindRank = map[string]int{
	"Namespace":             0,
	"ServiceAccount":        10,
	"ConfigMap":             10,
	"Secret":                10,
	"PersistentVolumeClaim": 10,
	"Deployment":            20,
	"StatefulSet":           20,
	"DaemonSet":             20,
	"Job":                   20,
	"CronJob":               20,
	"Service":               30,
	"Ingress":               40,
}

const defaultRank = 25 // unknown kinds go between workloads and services

// Rank returns the apply rank for a kind.
func Rank(kind string) int {
	if r, ok := kindRank[kind]; ok {
		return r
	}
	return defaultRank
}

// IsWorkload reports whether a kind has a rollout to verify.
func IsWorkload(kind string) bool {
	switch kind {
	case "Deployment", "StatefulSet", "DaemonSet":
		return true
	}
	return false
}

// Order resolves the apply order of documents. Edges come from three
// sources: kind ranks (workload before routing), ingress backend service
// references, and explicit depends-on annotations. Cycles are an error.
func Order(docs []*Document) ([]*Document, error) {
	byID := make(map[string]*Document, len(docs))
	position := make(map[string]int, len(docs))

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for i, doc := range docs {
		id := doc.ID()
		if _, dup := byID[id]; dup {
			return nil, fmt.Errorf("duplicate manifest document %s in %s", doc.Display(), doc.Path)
		}
		byID[id] = doc
		position[id] = i
		if err := g.AddVertex(id); err != nil {
			return nil, fmt.Errorf("ordering %s: %w", doc.Display(), err)
		}
	}

	addEdge := func(from, to *Document) error {
		err := g.AddEdge(from.ID(), to.ID())
		if errors.Is(err, graph.ErrEdgeAlreadyExists) {
			return nil
		}
		if errors.Is(err, graph.ErrEdgeCreatesCycle) {
			return fmt.Errorf("dependency cycle between %s and %s", from.Display(), to.Display())
		}
		return err
	}

	// Kind ranks: every lower-rank document precedes every higher-rank one.
	// Manifest sets are three to a dozen documents, so the dense edges are
	// cheap and keep the ordering total.
	for _, a := range docs {
		for _, b := range docs {
			if a == b {
				continue
			}
			if Rank(a.Kind) < Rank(b.Kind) {
				if err := addEdge(a, b); err != nil {
					return nil, err
				}
			}
		}
	}

	// Ingress backends: the referenced Service applies first.
	for _, doc := range docs {
		if doc.Kind != "Ingress" {
			continue
		}
		for _, svcName := range ingressBackends(doc) {
			if svc := findByKindName(docs, "Service", svcName, doc.Namespace); svc != nil {
				if err := addEdge(svc, doc); err != nil {
					return nil, err
				}
			}
		}
	}

	// Explicit depends-on annotations.
	for _, doc := range docs {
		for _, dep := range dependsOn(doc) {
			parts := strings.SplitN(dep, "/", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("%s: malformed %s entry %q (want Kind/name)", doc.Display(), DependsOnAnnotation, dep)
			}
			target := findByKindName(docs, parts[0], parts[1], doc.Namespace)
			if target == nil {
				return nil, fmt.Errorf("%s: %s references unknown document %q", doc.Display(), DependsOnAnnotation, dep)
			}
			if err := addEdge(target, doc); err != nil {
				return nil, err
			}
		}
	}

	// Stable sort: ties resolved by rank, then input position, so the
	// apply order is deterministic across runs.
	sorted, err := graph.StableTopologicalSort(g, func(a, b string) bool {
		ra, rb := Rank(byID[a].Kind), Rank(byID[b].Kind)
		if ra != rb {
			return ra < rb
		}
		return position[a] < position[b]
	})
	if err != nil {
		return nil, fmt.Errorf("resolving apply order: %w", err)
	}

	ordered := make([]*Document, len(sorted))
	for i, id := range sorted {
		ordered[i] = byID[id]
	}
	return ordered, nil
}

// ingressBackends extracts service names referenced by an Ingress.
func ingressBackends(doc *Document) []string {
	var names []string
	spec, _ := doc.Obj["spec"].(map[string]interface{})
	if spec == nil {
		return nil
	}

	if def, ok := spec["defaultBackend"].(map[string]interface{}); ok {
		if name := backendServiceName(def); name != "" {
			names = append(names, name)
		}
	}

	rules, _ := spec["rules"].([]interface{})
	for _, r := range rules {
		rule, _ := r.(map[string]interface{})
		httpRule, _ := rule["http"].(map[string]interface{})
		paths, _ := httpRule["paths"].([]interface{})
		for _, p := range paths {
			pathEntry, _ := p.(map[string]interface{})
			backend, _ := pathEntry["backend"].(map[string]interface{})
			if name := backendServiceName(backend); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

func backendServiceName(backend map[string]interface{}) string {
	svc, _ := backend["service"].(map[string]interface{})
	if svc == nil {
		return ""
	}
	name, _ := svc["name"].(string)
	return name
}

func dependsOn(doc *Document) []string {
	raw, ok := doc.Annotations[DependsOnAnnotation]
	if !ok || raw == "" {
		return nil
	}
	var deps []string
	for _, entry := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(entry); trimmed != "" {
			deps = append(deps, trimmed)
		}
	}
	return deps
}

func findByKindName(docs []*Document, kind, name, namespace string) *Document {
	for _, doc := range docs {
		if doc.Kind == kind && doc.Name == name && doc.Namespace == namespace {
			return doc
		}
	}
	return nil
}
