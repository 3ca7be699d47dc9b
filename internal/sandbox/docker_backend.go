package sandbox

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	// WorkDir is where program files are copied and run
	WorkDir = "/workspace"

	LabelSandbox  = "pencil.sandbox"
	LabelLanguage = "pencil.lang"

	pidsLimit   = 64
	stopTimeout = 5
)

// DockerBackend runs learner programs in long-lived containers.
type DockerBackend struct {
	client *client.Client
}

// NewDockerBackend connects to the daemon named by the DOCKER_* environment
// and fails with ErrDockerUnavailable when it does not answer.
func NewDockerBackend() (*DockerBackend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("%w: %v", ErrDockerUnavailable, err)
	}
	return &DockerBackend{client: cli}, nil
}

// containerSpec builds an idle container for cfg. Programs are exec'd
// into it one run at a time.
func containerSpec(cfg Config) (*container.Config, *container.HostConfig) {
	pids := int64(pidsLimit)
	spec := &container.Config{
		Image:           cfg.Image,
		Cmd:             []string{"sh", "-c", "while :; do sleep 3600; done"},
		WorkingDir:      WorkDir,
		NetworkDisabled: cfg.NetworkOff,
		Labels: map[string]string{
			LabelSandbox:  "true",
			LabelLanguage: cfg.Language,
		},
	}
	host := &container.HostConfig{
		Resources: container.Resources{
			Memory:    int64(cfg.MemoryMB) << 20,
			NanoCPUs:  int64(cfg.CPULimit * 1e9),
			PidsLimit: &pids,
		},
	}
	return spec, host
}

// CreateContainer pulls the image if needed and starts an idle container.
func (b *DockerBackend) CreateContainer(ctx context.Context, cfg Config) (string, error) {
	if err := b.pull(ctx, cfg.Image); err != nil {
		return "", err
	}

	spec, host := containerSpec(cfg)
	created, err := b.client.ContainerCreate(ctx, spec, host, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("create %s container: %w", cfg.Language, err)
	}
	if err := b.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		_ = b.client.ContainerRemove(ctx, created.ID, container.RemoveOptions{Force: true})
		return "", fmt.Errorf("start %s container: %w", cfg.Language, err)
	}
	return created.ID, nil
}

// CopyFiles writes files into the container's work directory.
func (b *DockerBackend) CopyFiles(ctx context.Context, containerID string, files map[string]string) error {
	archive, err := tarFiles(files)
	if err != nil {
		return err
	}
	if err := b.client.CopyToContainer(ctx, containerID, WorkDir, archive, container.CopyToContainerOptions{}); err != nil {
		return fmt.Errorf("copy files: %w", err)
	}
	return nil
}

// tarFiles packs files into a tar stream in name order.
func tarFiles(files map[string]string) (io.Reader, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	dirs := make(map[string]bool)
	for _, name := range names {
		for dir := path.Dir(name); dir != "." && !dirs[dir]; dir = path.Dir(dir) {
			dirs[dir] = true
			hdr := &tar.Header{Typeflag: tar.TypeDir, Name: dir + "/", Mode: 0o755, ModTime: time.Now()}
			if err := tw.WriteHeader(hdr); err != nil {
				return nil, fmt.Errorf("tar %s: %w", dir, err)
			}
		}
		body := files[name]
		hdr := &tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), ModTime: time.Now()}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("tar %s: %w", name, err)
		}
		if _, err := io.WriteString(tw, body); err != nil {
			return nil, fmt.Errorf("tar %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("tar: %w", err)
	}
	return &buf, nil
}

// Exec runs cmd in workDir. When timeout passes it returns whatever was
// captured so far together with ErrExecTimeout.
func (b *DockerBackend) Exec(ctx context.Context, containerID, workDir string, cmd []string, timeout time.Duration) (*ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	created, err := b.client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		WorkingDir:   workDir,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create exec: %w", err)
	}

	start := time.Now()
	attached, err := b.client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return nil, fmt.Errorf("attach exec: %w", err)
	}
	defer attached.Close()

	var raw bytes.Buffer
	_, _ = io.Copy(&raw, attached.Reader)
	stdout, stderr := demux(raw.Bytes())
	res := &ExecResult{Stdout: stdout, Stderr: stderr, Duration: time.Since(start)}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = -1
		return res, ErrExecTimeout
	}

	inspect, err := b.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return nil, fmt.Errorf("inspect exec: %w", err)
	}
	res.ExitCode = inspect.ExitCode
	return res, nil
}

// DestroyContainer stops and removes a container.
func (b *DockerBackend) DestroyContainer(ctx context.Context, containerID string) error {
	timeout := stopTimeout
	_ = b.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	if err := b.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove container %s: %w", containerID, err)
	}
	return nil
}

// IsContainerRunning reports whether the container is still up.
func (b *DockerBackend) IsContainerRunning(ctx context.Context, containerID string) (bool, error) {
	info, err := b.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, err
	}
	return info.State != nil && info.State.Running, nil
}

// Close closes the Docker client.
func (b *DockerBackend) Close() error {
	return b.client.Close()
}

func (b *DockerBackend) pull(ctx context.Context, ref string) error {
	if _, err := b.client.ImageInspect(ctx, ref); err == nil {
		return nil
	}
	progress, err := b.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", ref, err)
	}
	defer progress.Close()
	_, err = io.Copy(io.Discard, progress)
	return err
}

// demux splits the multiplexed exec stream. Output that does not carry
// stream headers is returned as stdout.
func demux(data []byte) (stdout, stderr string) {
	var out, errOut bytes.Buffer
	if _, err := stdcopy.StdCopy(&out, &errOut, bytes.NewReader(data)); err != nil {
		return string(data), ""
	}
	return out.String(), errOut.String()
}
