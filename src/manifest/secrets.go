package manifest

import (
	"fmt"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// ScanSecrets runs a gitleaks scan over every document and returns
// critical findings for embedded credentials. Deploy manifests are a
// common place for a pasted token to slip through review; the scan gates
// the apply the same way a pre-push lint would.
func ScanSecrets(docs []*Document) ([]Finding, error) {
	detector, err := detect.NewDetectorDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("initializing secret detector: %w", err)
	}

	var findings []Finding
	for _, doc := range docs {
		for _, hit := range detector.DetectBytes(doc.Raw) {
			findings = append(findings, Finding{
				Doc:      doc.Display(),
				Severity: "critical",
				Message:  fmt.Sprintf("%s (%s) at line %d", hit.Description, hit.RuleID, hit.StartLine+1),
			})
		}
	}
	return findings, nil
}
