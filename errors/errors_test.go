package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		desc string
		err  *Error
		want string
	}{
		{
			desc: "op and message",
			err:  New(Configuration, "manifest.normalize", "", "%q is required", "target"),
			want: `manifest.normalize: "target" is required`,
		},
		{
			desc: "with path and cause",
			err:  Wrap(Write, "build.control", "/tmp/x/DEBIAN/control", fs.ErrPermission, "writing control file"),
			want: "build.control: /tmp/x/DEBIAN/control: writing control file: permission denied",
		},
		{
			desc: "cause only",
			err:  &Error{Kind: Archiver, Op: "build.archive", Err: fs.ErrNotExist},
			want: "build.archive: file does not exist",
		},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("Error() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindThroughWrapping(t *testing.T) {
	base := Wrap(DescriptorLoad, "manifest.load", "pkg.json", fs.ErrNotExist, "reading descriptor")
	wrapped := fmt.Errorf("finishing build: %w", base)

	if !Is(wrapped, DescriptorLoad) {
		t.Errorf("Is(wrapped, DescriptorLoad) = false, want true")
	}
	if Is(wrapped, Write) {
		t.Errorf("Is(wrapped, Write) = true, want false")
	}
	if got := KindOf(wrapped); got != DescriptorLoad {
		t.Errorf("KindOf = %q, want %q", got, DescriptorLoad)
	}
	if !errors.Is(wrapped, fs.ErrNotExist) {
		t.Errorf("cause is not reachable through errors.Is")
	}
	if got := KindOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}
