package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/types"
)

// Container-ops variants
const (
	VariantPull      = "pull"
	VariantBuild     = "build"
	VariantStartStop = "startstop"
)

var errNoRuntime = errors.New("container runtime unavailable")

// RunContainerOpsSuite times a cold image pull, an image build, and N
// sequential container start/stop cycles against the ambient runtime. It
// needs no target directory.
func (a *Adapter) RunContainerOpsSuite(ctx context.Context, outDir string) (res types.SuiteResult, err error) {
	s := a.newSuite(types.SuiteContainer, outDir)
	start := a.now()
	var current string
	defer a.finish(s, start, &current, &res, &err)

	steps := []struct {
		variant string
		run     func(context.Context, io.Writer) error
	}{
		{VariantPull, a.timePull},
		{VariantBuild, a.timeBuild},
		{VariantStartStop, a.timeStartStop},
	}
	for _, step := range steps {
		current = step.variant
		if err := a.runVariant(ctx, types.SuiteContainer, step.variant, outDir, step.run); err != nil {
			a.logger.Error().Err(err).Str("variant", step.variant).Msg("Container variant failed")
			s.fail(step.variant, err)
			continue
		}
		s.ok(step.variant)
	}
	return
}

func (a *Adapter) runVariant(ctx context.Context, family types.SuiteFamily, variant, outDir string, run func(context.Context, io.Writer) error) error {
	f, err := a.artifact(outDir, family, variant)
	if err != nil {
		return err
	}
	defer f.Close()
	return run(ctx, f)
}

func (a *Adapter) timePull(ctx context.Context, w io.Writer) error {
	if a.runtime == nil {
		return errNoRuntime
	}
	if err := a.runtime.RemoveImage(ctx, a.ctr.Image); err != nil {
		a.logger.Warn().Err(err).Str("image", a.ctr.Image).Msg("Could not remove image, pull may be warm")
	}

	start := a.now()
	if err := a.runtime.PullImage(ctx, a.ctr.Image); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "image: %s\n%s\n", a.ctr.Image, FormatReal(a.now().Sub(start)))
	return err
}

func (a *Adapter) timeBuild(ctx context.Context, w io.Writer) error {
	argv, err := config.ExpandCommand(a.ctr.BuildCommand, map[string]string{
		"tag":     a.ctr.BuildTag,
		"context": a.ctr.BuildContext,
	})
	if err != nil {
		return err
	}

	start := a.now()
	if err := a.exec.Stream(ctx, w, argv[0], argv[1:]...); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "\n%s\n", FormatReal(a.now().Sub(start)))
	return err
}

// timeStartStop reports the arithmetic mean of the per-iteration elapsed
// time. Iterations run one after another, each waiting for the process to
// exit.
func (a *Adapter) timeStartStop(ctx context.Context, w io.Writer) error {
	if a.runtime == nil {
		return errNoRuntime
	}
	n := a.ctr.Iterations
	if n <= 0 {
		return fmt.Errorf("invalid iteration count %d", n)
	}

	var total time.Duration
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s-%d-%d", a.idPrefix, a.now().UnixNano(), i)
		start := a.now()
		code, err := a.runtime.RunOnce(ctx, a.ctr.Image, id, a.ctr.Args)
		elapsed := a.now().Sub(start)
		if err != nil {
			return fmt.Errorf("iteration %d: %w", i, err)
		}
		if code != 0 {
			return fmt.Errorf("iteration %d: process exited with code %d", i, code)
		}
		total += elapsed
		if _, err := fmt.Fprintf(w, "iteration %d: %.3fs\n", i, elapsed.Seconds()); err != nil {
			return err
		}
	}

	mean := total / time.Duration(n)
	_, err := fmt.Fprintf(w, "iterations: %d\n%s\n", n, FormatReal(mean))
	return err
}
