package runtime

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/errdefs"
	"github.com/containerd/containerd/images"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/cuemby/fsbench/pkg/log"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"github.com/rs/zerolog"
)

const (
	// DefaultNamespace is the containerd namespace fsbench works in
	DefaultNamespace = "fsbench"

	// DefaultSocketPath is the default containerd socket
	DefaultSocketPath = "/run/containerd/containerd.sock"
)

// ContainerdRuntime is the ambient container runtime the container-ops
// suite measures
type ContainerdRuntime struct {
	client    *containerd.Client
	namespace string
	logger    zerolog.Logger
}

// NewContainerdRuntime connects to containerd at socketPath
func NewContainerdRuntime(socketPath, namespace string) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	client, err := containerd.New(socketPath, containerd.WithTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &ContainerdRuntime{
		client:    client,
		namespace: namespace,
		logger:    log.WithComponent("runtime"),
	}, nil
}

// Close closes the containerd client connection
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// PullImage pulls and unpacks an image
func (r *ContainerdRuntime) PullImage(ctx context.Context, imageRef string) error {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	if _, err := r.client.Pull(ctx, imageRef, containerd.WithPullUnpack); err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageRef, err)
	}
	return nil
}

// RemoveImage deletes an image so the next pull is cold. A missing image is
// not an error.
func (r *ContainerdRuntime) RemoveImage(ctx context.Context, imageRef string) error {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	err := r.client.ImageService().Delete(ctx, imageRef, images.SynchronousDelete())
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove image %s: %w", imageRef, err)
	}
	return nil
}

// RunOnce creates a container from imageRef, starts it with args, waits for
// the process to exit, and removes the container again. It returns the exit
// code of the process.
func (r *ContainerdRuntime) RunOnce(ctx context.Context, imageRef, id string, args []string) (code int, err error) {
	ctx = namespaces.WithNamespace(ctx, r.namespace)

	image, err := r.client.GetImage(ctx, imageRef)
	if err != nil {
		return -1, fmt.Errorf("failed to get image %s: %w", imageRef, err)
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithMounts([]specs.Mount{
			{
				Source:      "tmpfs",
				Destination: "/tmp",
				Type:        "tmpfs",
				Options:     []string{"nosuid", "nodev", "size=16m"},
			},
		}),
	}
	if len(args) > 0 {
		opts = append(opts, oci.WithProcessArgs(args...))
	}

	container, err := r.client.NewContainer(
		ctx,
		id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return -1, fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		if derr := container.Delete(context.WithoutCancel(ctx), containerd.WithSnapshotCleanup); derr != nil {
			r.logger.Warn().Err(derr).Str("container", id).Msg("Failed to delete container")
			err = errors.Join(err, derr)
		}
	}()

	task, err := container.NewTask(ctx, cio.NullIO)
	if err != nil {
		return -1, fmt.Errorf("failed to create task: %w", err)
	}
	defer func() {
		if _, derr := task.Delete(context.WithoutCancel(ctx), containerd.WithProcessKill); derr != nil && !errdefs.IsNotFound(derr) {
			err = errors.Join(err, fmt.Errorf("failed to delete task: %w", derr))
		}
	}()

	// Wait must be set up before Start so a fast exit is not missed.
	statusC, err := task.Wait(ctx)
	if err != nil {
		return -1, fmt.Errorf("failed to wait for task: %w", err)
	}
	if err := task.Start(ctx); err != nil {
		return -1, fmt.Errorf("failed to start task: %w", err)
	}

	select {
	case status := <-statusC:
		exit, _, err := status.Result()
		if err != nil {
			return -1, fmt.Errorf("task exit status: %w", err)
		}
		return int(exit), nil
	case <-ctx.Done():
		_ = task.Kill(context.WithoutCancel(ctx), syscall.SIGKILL)
		return -1, ctx.Err()
	}
}

// Ping checks the daemon answers
func (r *ContainerdRuntime) Ping(ctx context.Context) error {
	serving, err := r.client.IsServing(ctx)
	if err != nil {
		return fmt.Errorf("containerd not reachable: %w", err)
	}
	if !serving {
		return errors.New("containerd is not serving")
	}
	return nil
}
