package sandbox

import (
	"errors"
	"testing"
)

func mustPolicy(t *testing.T, root string, denylist, readOnly []string, gRead, gWrite bool) *Policy {
	t.Helper()
	p, err := NewPolicy(root, denylist, readOnly, gRead, gWrite)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	return p
}

func TestReadableUnderRoot(t *testing.T) {
	p := mustPolicy(t, "/home/user", nil, nil, false, false)

	cases := []string{"/home/user/notes.txt", "notes.txt", "sub/dir/../dir/file", "/home/user"}
	for _, path := range cases {
		if _, err := p.ResolveReadable(path, false); err != nil {
			t.Errorf("ResolveReadable(%q) = %v, want approval", path, err)
		}
	}
}

func TestRelativePathsJoinRoot(t *testing.T) {
	p := mustPolicy(t, "/home/user", nil, nil, false, false)
	abs, err := p.ResolveReadable("docs/lista.md", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if abs != "/home/user/docs/lista.md" {
		t.Errorf("got %q", abs)
	}
}

func TestDenylistAlwaysWins(t *testing.T) {
	p := mustPolicy(t, "/", []string{"/proc", "/sys"}, []string{"/proc"}, true, true)

	for _, path := range []string{"/proc/self/environ", "/sys/kernel"} {
		if _, err := p.ResolveReadable(path, true); !errors.Is(err, ErrPathDenied) {
			t.Errorf("ResolveReadable(%q) = %v, want ErrPathDenied", path, err)
		}
		if _, err := p.ResolveWritable(path, true); !errors.Is(err, ErrPathDenied) {
			t.Errorf("ResolveWritable(%q) = %v, want ErrPathDenied", path, err)
		}
	}
}

func TestDenylistMatchesWholeComponents(t *testing.T) {
	p := mustPolicy(t, "/", []string{"/proc"}, nil, false, false)
	if _, err := p.ResolveReadable("/process/data", false); errors.Is(err, ErrPathDenied) {
		t.Error("/process must not match denylist entry /proc")
	}
}

func TestOutsideRootRequiresApproval(t *testing.T) {
	p := mustPolicy(t, "/home/user", nil, nil, false, false)

	if _, err := p.ResolveReadable("/etc/hosts", false); !errors.Is(err, ErrOutsideRead) {
		t.Errorf("got %v, want ErrOutsideRead", err)
	}
	if _, err := p.ResolveReadable("/etc/hosts", true); err != nil {
		t.Errorf("per-call approval should clear the read: %v", err)
	}
	if _, err := p.ResolveWritable("/etc/hosts", false); !errors.Is(err, ErrOutsideWrite) {
		t.Errorf("got %v, want ErrOutsideWrite", err)
	}
	if _, err := p.ResolveWritable("/etc/hosts", true); err != nil {
		t.Errorf("per-call approval should clear the write: %v", err)
	}
}

func TestGlobalFlags(t *testing.T) {
	read := mustPolicy(t, "/home/user", nil, nil, true, false)
	if _, err := read.ResolveReadable("/var/log/syslog", false); err != nil {
		t.Errorf("global read: %v", err)
	}
	if _, err := read.ResolveWritable("/var/log/syslog", false); !errors.Is(err, ErrOutsideWrite) {
		t.Error("global read must not grant writes")
	}

	write := mustPolicy(t, "/home/user", nil, nil, false, true)
	if _, err := write.ResolveWritable("/var/tmp/out.txt", false); err != nil {
		t.Errorf("global write: %v", err)
	}
}

func TestReadOnlyDirs(t *testing.T) {
	p := mustPolicy(t, "/home/user", nil, []string{"/usr/share/doc"}, false, false)

	if _, err := p.ResolveReadable("/usr/share/doc/go/README", false); err != nil {
		t.Errorf("read-only dir: %v", err)
	}
	// The read whitelist never extends to writes.
	if _, err := p.ResolveWritable("/usr/share/doc/go/README", false); !errors.Is(err, ErrOutsideWrite) {
		t.Errorf("got %v, want ErrOutsideWrite", err)
	}
}
