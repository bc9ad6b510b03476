package labels

// Standard label keys.
const (
	// KeyName is the selector label shared by an app's pods, Service and Deployment.
	KeyName = "name"

	// KeyStack identifies which stack declared the object.
	KeyStack = "nginx-demo.jaxxstorm.io/stack"

	// KeyComponent identifies the component (ingress controller, production app).
	KeyComponent = "nginx-demo.jaxxstorm.io/component"

	// KeyManagedBy is the well-known Kubernetes managed-by label.
	KeyManagedBy = "app.kubernetes.io/managed-by"
)

// Component values
const (
	ComponentIngressController = "ingress-controller"
	ComponentProductionApp     = "production-app"
)

// ManagedByNginxDemo is the value written to KeyManagedBy.
const ManagedByNginxDemo = "nginx-demo"

// LabelBuilder provides a fluent interface for building object labels.
type LabelBuilder struct {
	labels map[string]string
}

// NewLabelBuilder creates a builder with the managed-by label pre-set.
func NewLabelBuilder() *LabelBuilder {
	return &LabelBuilder{
		labels: map[string]string{
			KeyManagedBy: ManagedByNginxDemo,
		},
	}
}

// WithName adds the selector label.
func (lb *LabelBuilder) WithName(name string) *LabelBuilder {
	lb.labels[KeyName] = name
	return lb
}

// WithStack adds the stack label when the stack name is non-empty.
func (lb *LabelBuilder) WithStack(stack string) *LabelBuilder {
	if stack != "" {
		lb.labels[KeyStack] = stack
	}
	return lb
}

// WithComponent adds the component label.
func (lb *LabelBuilder) WithComponent(component string) *LabelBuilder {
	lb.labels[KeyComponent] = component
	return lb
}

// Merge adds all labels from the provided map.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.labels[k] = v
	}
	return lb
}

// Build returns a copy of the labels map.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.labels))
	for k, v := range lb.labels {
		result[k] = v
	}
	return result
}

// Selector returns the selector labels for an app. Pod templates, Deployment
// selectors and Service selectors all use exactly this set.
func Selector(name string) map[string]string {
	return map[string]string{KeyName: name}
}

// SelectorForStack returns a label selector string for all objects in a stack.
func SelectorForStack(stack string) string {
	return KeyStack + "=" + stack
}
