package imagefile

import "testing"

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		path      string
		supported bool
	}{
		{"ubuntu-24.04.img", true},
		{"debian-12.iso", true},
		{"raspbian.zip", true},
		{"firmware.BIN", true},
		{"image.IMG", true},
		{"archive.xz", true},
		{"image.dmg", true},
		{"document.pdf", false},
		{"notes.txt", false},
		{"noextension", false},
		{"", false},
		{"trailing-dot.", false},
	}

	for _, tt := range tests {
		if got := IsSupportedImage(tt.path); got != tt.supported {
			t.Errorf("IsSupportedImage(%q) = %v, want %v", tt.path, got, tt.supported)
		}
	}
}

func TestLooksLikeWindowsImage(t *testing.T) {
	tests := []struct {
		path    string
		matches bool
	}{
		{"Windows10.iso", true},
		{"en_windows_7_ultimate.iso", true},
		{"win8-installer.img", true},
		{"WIN10_PRO.iso", true},
		{"winxp.img", true},
		{"/downloads/windows-anything.iso", true},
		{"ubuntu-24.04.iso", false},
		{"fedora-workstation.img", false},
		// Directory names do not count, only the file name.
		{"/home/windows/ubuntu.iso", false},
	}

	for _, tt := range tests {
		if got := LooksLikeWindowsImage(tt.path); got != tt.matches {
			t.Errorf("LooksLikeWindowsImage(%q) = %v, want %v", tt.path, got, tt.matches)
		}
	}
}

func TestMissingPartitionTable(t *testing.T) {
	if !MissingPartitionTable(Descriptor{HasMBR: false}) {
		t.Error("expected missing partition table when HasMBR is false")
	}
	if MissingPartitionTable(Descriptor{HasMBR: true}) {
		t.Error("expected no warning when HasMBR is true")
	}
}

func TestDescriptorLocal(t *testing.T) {
	if (Descriptor{SourceURL: "https://example.com/img.iso"}).Local() {
		t.Error("descriptor without path should not be local")
	}
	if !(Descriptor{Path: "/tmp/img.iso"}).Local() {
		t.Error("descriptor with path should be local")
	}
}
