/*
Package runtime wraps the containerd client used by the container-ops
workload suite.

The suite times three things against the ambient runtime: a cold image
pull (RemoveImage then PullImage), an image build (done by an external
builder), and repeated container start/stop cycles (RunOnce). RunOnce
creates a container with a fresh snapshot, starts its task, blocks until
the process exits, and deletes both task and container before returning:

	rt, err := runtime.NewContainerdRuntime(runtime.DefaultSocketPath, "fsbench")
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.PullImage(ctx, "docker.io/library/alpine:3.19"); err != nil {
		return err
	}
	code, err := rt.RunOnce(ctx, "docker.io/library/alpine:3.19", "fsbench-ss-1", []string{"/bin/true"})

All calls run in the configured containerd namespace.
*/
package runtime
