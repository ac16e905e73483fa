package filemode

import "testing"

func TestToGo(t *testing.T) {
	tests := []struct {
		name string
		unix UnixMode
		want GoMode
	}{
		{"regular file", 0o100644, 0o644},
		{"directory", 0o040755, 0x800001ed},
		{"symlink", 0o120777, 0x080001ff},
		{"named pipe", 0o010644, goModeNamedPipe | 0o644},
		{"socket", 0o140666, goModeSocket | 0o666},
		{"char device", 0o020666, goModeCharDevice | goModeDevice | 0o666},
		{"block device", 0o060666, goModeDevice | 0o666},
		{"setuid bit", 0o104755, goModeSetuid | 0o755},
		{"setgid bit", 0o102755, goModeSetgid | 0o755},
		{"sticky bit", 0o041755, goModeDir | goModeSticky | 0o755},
		{"all special bits", 0o107777, goModeSetuid | goModeSetgid | goModeSticky | 0o777},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToGo(tt.unix); got != tt.want {
				t.Errorf("ToGo(%#o) = %#x, want %#x", tt.unix, got, tt.want)
			}
		})
	}
}

func TestToGoRegularFileLosesTypeBits(t *testing.T) {
	if got := ToGo(0o100644); got != 0o644 {
		t.Errorf("ToGo(0o100644) = %#x, want 0o644", got)
	}
}

func TestToUnixRoundTripsPermissionsAndType(t *testing.T) {
	tests := []struct {
		name string
		in   UnixMode
	}{
		{"regular file", 0o100644},
		{"directory", 0o040755},
		{"symlink", 0o120777},
		{"named pipe", 0o010644},
		{"socket", 0o140666},
		{"char device", 0o020666},
		{"block device", 0o060666},
		{"setuid bit", 0o104755},
		{"setgid bit", 0o102755},
		{"sticky bit and dir", 0o041755},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			go_ := ToGo(tt.in)
			back := ToUnix(go_)
			if back != tt.in {
				t.Errorf("ToUnix(ToGo(%#o)) = %#o, want %#o", tt.in, back, tt.in)
			}
		})
	}
}
