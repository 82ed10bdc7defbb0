package manifest

import (
	"fmt"
	"strings"
)

// Finding is a single validation issue.
type Finding struct {
	Doc      string // Kind/name
	Severity string // critical, warning
	Message  string
}

// Validate runs structural cross-checks over a manifest set:
//   - at least one workload exists
//   - service selectors have matching workload pod labels
//   - service targetPorts map to declared container ports
//   - ingress backends reference declared services
//
// Critical findings should abort before any apply; warnings should not.
func Validate(docs []*Document) []Finding {
	var findings []Finding

	var workloads, services []*Document
	for _, doc := range docs {
		switch {
		case IsWorkload(doc.Kind):
			workloads = append(workloads, doc)
		case doc.Kind == "Service":
			services = append(services, doc)
		}
	}

	if len(workloads) == 0 {
		findings = append(findings, Finding{
			Doc:      "(set)",
			Severity: "critical",
			Message:  "no workload document (Deployment/StatefulSet/DaemonSet) in manifest set",
		})
	}

	for _, svc := range services {
		findings = append(findings, checkService(svc, workloads)...)
	}

	for _, doc := range docs {
		if doc.Kind != "Ingress" {
			continue
		}
		for _, backend := range ingressBackends(doc) {
			if findByKindName(docs, "Service", backend, doc.Namespace) == nil {
				findings = append(findings, Finding{
					Doc:      doc.Display(),
					Severity: "critical",
					Message:  fmt.Sprintf("backend references undeclared service %q", backend),
				})
			}
		}
	}

	return findings
}

// HasCritical reports whether any finding is critical.
func HasCritical(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == "critical" {
			return true
		}
	}
	return false
}

// checkService verifies the selector matches a workload and the
// targetPort maps to a container port on that workload.
func checkService(svc *Document, workloads []*Document) []Finding {
	var findings []Finding

	spec, _ := svc.Obj["spec"].(map[string]interface{})
	if spec == nil {
		return findings
	}

	selector := stringMap(spec["selector"])
	if len(selector) == 0 {
		return findings // headless/external services are out of scope here
	}

	var matched *Document
	for _, w := range workloads {
		if labelsMatch(selector, podLabels(w)) {
			matched = w
			break
		}
	}
	if matched == nil {
		findings = append(findings, Finding{
			Doc:      svc.Display(),
			Severity: "critical",
			Message:  fmt.Sprintf("selector %s matches no workload pod labels", formatLabels(selector)),
		})
		return findings
	}

	declared := containerPorts(matched)
	ports, _ := spec["ports"].([]interface{})
	for _, p := range ports {
		port, _ := p.(map[string]interface{})
		target, ok := intValue(port["targetPort"])
		if !ok {
			continue // named targetPorts are resolved by the cluster
		}
		if len(declared) > 0 && !declared[target] {
			findings = append(findings, Finding{
				Doc:      svc.Display(),
				Severity: "warning",
				Message:  fmt.Sprintf("targetPort %d not declared as a container port on %s", target, matched.Display()),
			})
		}
	}

	return findings
}

// podLabels returns the pod template labels of a workload.
func podLabels(doc *Document) map[string]string {
	spec, _ := doc.Obj["spec"].(map[string]interface{})
	template, _ := spec["template"].(map[string]interface{})
	meta, _ := template["metadata"].(map[string]interface{})
	return stringMap(meta["labels"])
}

// containerPorts returns the set of containerPort values across all
// containers of a workload's pod template.
func containerPorts(doc *Document) map[int]bool {
	ports := make(map[int]bool)
	for _, c := range podContainers(doc) {
		list, _ := c["ports"].([]interface{})
		for _, p := range list {
			entry, _ := p.(map[string]interface{})
			if v, ok := intValue(entry["containerPort"]); ok {
				ports[v] = true
			}
		}
	}
	return ports
}

// podContainers returns the container maps of a workload's pod template.
func podContainers(doc *Document) []map[string]interface{} {
	spec, _ := doc.Obj["spec"].(map[string]interface{})
	template, _ := spec["template"].(map[string]interface{})
	podSpec, _ := template["spec"].(map[string]interface{})
	list, _ := podSpec["containers"].([]interface{})

	var containers []map[string]interface{}
	for _, c := range list {
		if m, ok := c.(map[string]interface{}); ok {
			containers = append(containers, m)
		}
	}
	return containers
}

func labelsMatch(selector, labels map[string]string) bool {
	if len(labels) == 0 {
		return false
	}
	for k, v := range selector {
		if labels[k] != v {
			return false
		}
	}
	return true
}

func stringMap(v interface{}) map[string]string {
	raw, _ := v.(map[string]interface{})
	if raw == nil {
		return nil
	}
	m := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			m[k] = s
		}
	}
	return m
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

func formatLabels(m map[string]string) string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}
