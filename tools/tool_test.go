package tools

import (
	"testing"

	"github.com/lorihq/lori/sandbox"
)

func newTestToolbox(t *testing.T) (*Toolbox, string) {
	t.Helper()
	root := t.TempDir()
	policy, err := sandbox.NewPolicy(root, []string{"/proc", "/sys", "/dev"}, nil, false, false)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	tb := NewToolbox(policy, DefaultLimits(), []string{"echo", "false", "head"}, nil)
	return tb, root
}

func newTestDispatcher(t *testing.T) (*Dispatcher, string) {
	t.Helper()
	tb, root := newTestToolbox(t)
	return NewDispatcher(NewRegistry(tb), nil), root
}
