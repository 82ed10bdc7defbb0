// Package manifest loads, orders, and validates the declarative Kubernetes
// documents the pipeline applies. The cluster is the authority that
// reconciles actual state against them; gantry's job ends at a clean,
// correctly ordered apply.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is a single manifest document plus its parsed header.
type Document struct {
	Path  string // source file
	Index int    // document index within the file

	APIVersion string
	Kind       string
	Name       string
	Namespace  string

	Annotations map[string]string

	// Raw is the re-marshaled document, fed to kubectl apply -f -.
	Raw []byte

	// Obj is the parsed tree, used for validation and image rewriting.
	Obj map[string]interface{}
}

// ID returns a stable identifier used as the dependency graph vertex key.
func (d *Document) ID() string {
	return fmt.Sprintf("%s/%s/%s#%d", d.Kind, d.Namespace, d.Name, d.Index)
}

// Display returns a short human-readable label.
func (d *Document) Display() string {
	return fmt.Sprintf("%s/%s", d.Kind, d.Name)
}

// LoadFiles reads all documents from the given manifest files, in order.
func LoadFiles(paths []string) ([]*Document, error) {
	var docs []*Document
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading manifest %s: %w", path, err)
		}
		fileDocs, err := Parse(path, data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fileDocs...)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no manifest documents found in %d file(s)", len(paths))
	}
	return docs, nil
}

// Parse splits a (possibly multi-document) YAML stream into Documents.
func Parse(path string, data []byte) ([]*Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var docs []*Document
	for i := 0; ; i++ {
		var obj map[string]interface{}
		err := dec.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing %s (document %d): %w", path, i, err)
		}
		if len(obj) == 0 {
			continue // empty document between separators
		}

		doc, err := fromObject(path, i, obj)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func fromObject(path string, index int, obj map[string]interface{}) (*Document, error) {
	doc := &Document{
		Path:  path,
		Index: index,
		Obj:   obj,
	}

	doc.APIVersion, _ = obj["apiVersion"].(string)
	doc.Kind, _ = obj["kind"].(string)
	if doc.Kind == "" {
		return nil, fmt.Errorf("%s (document %d): missing kind", path, index)
	}

	if meta, ok := obj["metadata"].(map[string]interface{}); ok {
		doc.Name, _ = meta["name"].(string)
		doc.Namespace, _ = meta["namespace"].(string)
		if ann, ok := meta["annotations"].(map[string]interface{}); ok {
			doc.Annotations = make(map[string]string, len(ann))
			for k, v := range ann {
				if s, ok := v.(string); ok {
					doc.Annotations[k] = s
				}
			}
		}
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("%s (document %d): missing metadata.name", path, index)
	}

	raw, err := yaml.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("%s (document %d): re-encoding: %w", path, index, err)
	}
	doc.Raw = raw

	return doc, nil
}

// Remarshal refreshes Raw after Obj has been mutated (image rewriting).
func (d *Document) Remarshal() error {
	raw, err := yaml.Marshal(d.Obj)
	if err != nil {
		return fmt.Errorf("re-encoding %s: %w", d.Display(), err)
	}
	d.Raw = raw
	return nil
}
