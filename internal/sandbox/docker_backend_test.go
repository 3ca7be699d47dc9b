package sandbox

import (
	"archive/tar"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func frame(stream byte, payload string) []byte {
	header := make([]byte, 8)
	header[0] = stream
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))
	return append(header, payload...)
}

func TestDemux(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		wantStdout string
		wantStderr string
	}{
		{name: "empty", input: nil},
		{name: "stdout only", input: frame(1, "hello\n"), wantStdout: "hello\n"},
		{name: "stderr only", input: frame(2, "boom\n"), wantStderr: "boom\n"},
		{
			name:       "interleaved",
			input:      append(append(frame(1, "a\n"), frame(2, "err\n")...), frame(1, "b\n")...),
			wantStdout: "a\nb\n",
			wantStderr: "err\n",
		},
		{name: "raw tty output", input: []byte("plain text output"), wantStdout: "plain text output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr := demux(tt.input)
			if stdout != tt.wantStdout {
				t.Errorf("stdout = %q; want %q", stdout, tt.wantStdout)
			}
			if stderr != tt.wantStderr {
				t.Errorf("stderr = %q; want %q", stderr, tt.wantStderr)
			}
		})
	}
}

func TestContainerSpec(t *testing.T) {
	cfg := DefaultConfig().WithImage("javascript", "node:22-alpine")
	spec, host := containerSpec(cfg)

	if spec.Image != "node:22-alpine" {
		t.Errorf("Image = %q", spec.Image)
	}
	if spec.WorkingDir != WorkDir {
		t.Errorf("WorkingDir = %q; want %q", spec.WorkingDir, WorkDir)
	}
	if !spec.NetworkDisabled {
		t.Error("network should be disabled by default")
	}
	if spec.Labels[LabelSandbox] != "true" || spec.Labels[LabelLanguage] != "javascript" {
		t.Errorf("Labels = %v", spec.Labels)
	}
	if host.Resources.Memory != 128<<20 {
		t.Errorf("Memory = %d; want %d", host.Resources.Memory, 128<<20)
	}
	if host.Resources.NanoCPUs != 5e8 {
		t.Errorf("NanoCPUs = %d; want 5e8", host.Resources.NanoCPUs)
	}
	if host.Resources.PidsLimit == nil || *host.Resources.PidsLimit != pidsLimit {
		t.Errorf("PidsLimit = %v; want %d", host.Resources.PidsLimit, pidsLimit)
	}
}

func TestTarFiles(t *testing.T) {
	r, err := tarFiles(map[string]string{"main.py": "print(1)\n", "data.txt": "x"})
	if err != nil {
		t.Fatalf("tarFiles() error = %v", err)
	}

	tr := tar.NewReader(r)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		body, _ := io.ReadAll(tr)
		if hdr.Name == "main.py" && string(body) != "print(1)\n" {
			t.Errorf("main.py = %q", body)
		}
		names = append(names, hdr.Name)
	}
	if len(names) != 2 || names[0] != "data.txt" || names[1] != "main.py" {
		t.Errorf("entries = %v; want sorted [data.txt main.py]", names)
	}
}

func TestTarFiles_RunDirectory(t *testing.T) {
	r, err := tarFiles(map[string]string{"run-1/main.py": "print(1)\n", "run-1/data.txt": "x"})
	if err != nil {
		t.Fatalf("tarFiles() error = %v", err)
	}

	tr := tar.NewReader(r)
	var names []string
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		if hdr.Name == "run-1/" && hdr.Typeflag != tar.TypeDir {
			t.Errorf("run-1/ typeflag = %v; want directory", hdr.Typeflag)
		}
		names = append(names, hdr.Name)
	}
	want := []string{"run-1/", "run-1/data.txt", "run-1/main.py"}
	if len(names) != len(want) {
		t.Fatalf("entries = %v; want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("entries[%d] = %q; want %q", i, names[i], want[i])
		}
	}
}

func TestConfig_WithImage(t *testing.T) {
	base := DefaultConfig()
	js := base.WithImage("javascript", "node:22-alpine")

	if js.Image != "node:22-alpine" || js.Language != "javascript" {
		t.Errorf("WithImage = %+v", js)
	}
	if js.MemoryMB != base.MemoryMB || !js.NetworkOff {
		t.Errorf("WithImage should keep limits, got %+v", js)
	}
	if base.Image != "python:3.12-alpine" {
		t.Errorf("WithImage mutated receiver: %+v", base)
	}
}
