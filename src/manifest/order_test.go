package manifest

import (
	"strings"
	"testing"
)

func kinds(docs []*Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Kind
	}
	return out
}

func TestOrderWorkloadsBeforeRouting(t *testing.T) {
	// Author order is routing-first on purpose.
	docs := parseAll(t, ingressYAML, serviceYAML, deploymentYAML)

	ordered, err := Order(docs)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}

	got := strings.Join(kinds(ordered), ",")
	if got != "Deployment,Service,Ingress" {
		t.Errorf("order = %s, want Deployment,Service,Ingress", got)
	}
}

func TestOrderConfigBeforeWorkload(t *testing.T) {
	configMap := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: orders-env
`
	namespace := `
kind: Namespace
apiVersion: v1
metadata:
  name: orders
`
	docs := parseAll(t, deploymentYAML, configMap, namespace)

	ordered, err := Order(docs)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}

	got := strings.Join(kinds(ordered), ",")
	if got != "Namespace,ConfigMap,Deployment" {
		t.Errorf("order = %s", got)
	}
}

func TestOrderStableForSameKind(t *testing.T) {
	second := strings.Replace(deploymentYAML, "name: orders", "name: billing", 1)
	docs := parseAll(t, deploymentYAML, second)

	ordered, err := Order(docs)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if ordered[0].Name != "orders" || ordered[1].Name != "billing" {
		t.Errorf("same-kind ties must keep input order, got %s then %s", ordered[0].Name, ordered[1].Name)
	}
}

func TestOrderDependsOnAnnotation(t *testing.T) {
	first := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: base
`
	second := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: derived
  annotations:
    gantry.dev/depends-on: ConfigMap/base
`
	// Author order puts the dependent first.
	docs := parseAll(t, second, first)

	ordered, err := Order(docs)
	if err != nil {
		t.Fatalf("Order: %v", err)
	}
	if ordered[0].Name != "base" {
		t.Errorf("order = %s,%s; depends-on must win", ordered[0].Name, ordered[1].Name)
	}
}

func TestOrderDependsOnUnknownTarget(t *testing.T) {
	doc := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: derived
  annotations:
    gantry.dev/depends-on: Secret/missing
`
	if _, err := Order(parseAll(t, doc)); err == nil {
		t.Fatal("expected error for unknown depends-on target")
	}
}

func TestOrderDependsOnCycle(t *testing.T) {
	a := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: a
  annotations:
    gantry.dev/depends-on: ConfigMap/b
`
	b := `
kind: ConfigMap
apiVersion: v1
metadata:
  name: b
  annotations:
    gantry.dev/depends-on: ConfigMap/a
`
	if _, err := Order(parseAll(t, a, b)); err == nil {
		t.Fatal("expected cycle error")
	}
}

func TestOrderRejectsDuplicates(t *testing.T) {
	if _, err := Order(parseAll(t, serviceYAML, serviceYAML)); err == nil {
		t.Fatal("expected error for duplicate documents")
	}
}

func TestRank(t *testing.T) {
	if Rank("Namespace") >= Rank("Deployment") {
		t.Error("Namespace must rank before Deployment")
	}
	if Rank("Deployment") >= Rank("Service") {
		t.Error("Deployment must rank before Service")
	}
	if Rank("Service") >= Rank("Ingress") {
		t.Error("Service must rank before Ingress")
	}
	if Rank("SomeCRD") != defaultRank {
		t.Errorf("unknown kind rank = %d, want default", Rank("SomeCRD"))
	}
}
