package manifest

import (
	"strings"
	"testing"
)

func findingMessages(findings []Finding) string {
	var parts []string
	for _, f := range findings {
		parts = append(parts, f.Severity+": "+f.Message)
	}
	return strings.Join(parts, "\n")
}

func TestValidateCleanSet(t *testing.T) {
	docs := parseAll(t, deploymentYAML, serviceYAML, ingressYAML)

	findings := Validate(docs)
	if len(findings) != 0 {
		t.Errorf("unexpected findings:\n%s", findingMessages(findings))
	}
}

func TestValidateNoWorkload(t *testing.T) {
	docs := parseAll(t, serviceYAML)

	findings := Validate(docs)
	if !HasCritical(findings) {
		t.Fatal("a set without workloads must be critical")
	}
	if !strings.Contains(findingMessages(findings), "no workload") {
		t.Errorf("findings:\n%s", findingMessages(findings))
	}
}

func TestValidateSelectorMismatch(t *testing.T) {
	badService := strings.Replace(serviceYAML, "app: orders", "app: billing", 1)
	docs := parseAll(t, deploymentYAML, badService)

	findings := Validate(docs)
	if !HasCritical(findings) {
		t.Fatalf("selector mismatch must be critical:\n%s", findingMessages(findings))
	}
	if !strings.Contains(findingMessages(findings), "matches no workload") {
		t.Errorf("findings:\n%s", findingMessages(findings))
	}
}

func TestValidateTargetPortWarning(t *testing.T) {
	badPort := strings.Replace(serviceYAML, "targetPort: 8080", "targetPort: 9999", 1)
	docs := parseAll(t, deploymentYAML, badPort)

	findings := Validate(docs)
	if HasCritical(findings) {
		t.Fatalf("port mismatch must stay a warning:\n%s", findingMessages(findings))
	}
	if !strings.Contains(findingMessages(findings), "targetPort 9999") {
		t.Errorf("findings:\n%s", findingMessages(findings))
	}
}

func TestValidateIngressBackendMissing(t *testing.T) {
	docs := parseAll(t, deploymentYAML, ingressYAML) // no Service

	findings := Validate(docs)
	if !HasCritical(findings) {
		t.Fatal("dangling ingress backend must be critical")
	}
	if !strings.Contains(findingMessages(findings), "undeclared service") {
		t.Errorf("findings:\n%s", findingMessages(findings))
	}
}
