// Package stack is a small declarative engine. Callers declare resources
// (Kubernetes objects, DNS records and the components grouping them); the
// stack computes a create/update/delete plan against its saved state, applies
// it with retries on transient API errors, prunes resources that are no
// longer declared and persists the new inventory together with the exported
// outputs.
//
// A typical run:
//
//	st, _ := stack.New(ctx, "dev", store, stack.WithClient(kube))
//	_ = st.Apply(ctx, controllerResources)
//	_ = st.Apply(ctx, appResources)
//	st.Export("url", app.URL())
//	_, _ = st.Commit(ctx)
package stack
