// Package kubectl provides Kubernetes inspection tools backed by the kubectl
// binary: pod and node listings summarized from `-o json` output, and a
// generic kubectl command tool.
package kubectl
