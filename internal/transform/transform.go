package transform

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"
	sigsyaml "sigs.k8s.io/yaml"
)

// KindCustomResourceDefinition is the kind RemoveCRDStatus acts on.
const KindCustomResourceDefinition = "CustomResourceDefinition"

// Func mutates an object in place before it is applied.
type Func func(obj *unstructured.Unstructured) error

// RemoveCRDStatus drops the status field from CustomResourceDefinitions.
// Charts sometimes ship CRDs with a status stanza that the API server rejects
// on apply. Objects of other kinds are left untouched.
func RemoveCRDStatus(obj *unstructured.Unstructured) error {
	if obj == nil || obj.GetKind() != KindCustomResourceDefinition {
		return nil
	}
	unstructured.RemoveNestedField(obj.Object, "status")
	return nil
}

// Decode parses multi-document YAML into objects, skipping empty documents.
func Decode(manifests []byte) ([]*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifests), 4096)

	var objs []*unstructured.Unstructured
	for index := 0; ; index++ {
		obj := &unstructured.Unstructured{}
		if err := decoder.Decode(obj); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode manifest document %d: %w", index, err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// Apply decodes manifests and runs every hook over every object, in order.
func Apply(manifests []byte, fns ...Func) ([]*unstructured.Unstructured, error) {
	objs, err := Decode(manifests)
	if err != nil {
		return nil, err
	}
	if err := Run(objs, fns...); err != nil {
		return nil, err
	}
	return objs, nil
}

// Run applies hooks to already decoded objects.
func Run(objs []*unstructured.Unstructured, fns ...Func) error {
	for _, obj := range objs {
		for _, fn := range fns {
			if err := fn(obj); err != nil {
				return fmt.Errorf("failed to transform %s %s: %w", obj.GetKind(), obj.GetName(), err)
			}
		}
	}
	return nil
}

// Encode serializes objects back into multi-document YAML.
func Encode(objs []*unstructured.Unstructured) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range objs {
		out, err := sigsyaml.Marshal(obj.Object)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s %s: %w", obj.GetKind(), obj.GetName(), err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}

// DefaultNamespace returns a hook that sets namespace on objects the
// namespaced predicate reports as namespaced and that have none.
func DefaultNamespace(namespace string, namespaced func(*unstructured.Unstructured) bool) Func {
	return func(obj *unstructured.Unstructured) error {
		if obj.GetNamespace() == "" && namespaced(obj) {
			obj.SetNamespace(namespace)
		}
		return nil
	}
}

// SetLabels returns a hook that merges labels into every object's metadata.
func SetLabels(labels map[string]string) Func {
	return func(obj *unstructured.Unstructured) error {
		if len(labels) == 0 {
			return nil
		}
		merged := obj.GetLabels()
		if merged == nil {
			merged = make(map[string]string, len(labels))
		}
		for k, v := range labels {
			merged[k] = v
		}
		obj.SetLabels(merged)
		return nil
	}
}
