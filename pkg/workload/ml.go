package workload

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/cuemby/fsbench/pkg/config"
	"github.com/cuemby/fsbench/pkg/types"
)

// CheckpointVariant names the ML artifact
const CheckpointVariant = "checkpoint"

// RunMLCheckpointSuite runs the checkpoint collaborator with model files
// landing under mount. The collaborator either writes the results file it
// is handed as {output}, or prints the results on stdout when the command
// has no {output} placeholder.
func (a *Adapter) RunMLCheckpointSuite(ctx context.Context, mount, outDir string) (res types.SuiteResult, err error) {
	s := a.newSuite(types.SuiteML, outDir)
	start := a.now()
	current := CheckpointVariant
	defer a.finish(s, start, &current, &res, &err)

	if cerr := a.runCheckpoint(ctx, mount, outDir); cerr != nil {
		a.logger.Error().Err(cerr).Msg("ML checkpoint suite failed")
		s.fail(CheckpointVariant, cerr)
		return
	}
	s.ok(CheckpointVariant)
	return
}

func (a *Adapter) runCheckpoint(ctx context.Context, mount, outDir string) error {
	output := filepath.Join(outDir, types.ArtifactFileName(types.SuiteML, CheckpointVariant))
	argv, err := config.ExpandCommand(a.ml.Command, map[string]string{
		"target": mount,
		"output": output,
	})
	if err != nil {
		return err
	}

	if a.ml.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.ml.Timeout)
		defer cancel()
	}

	a.logger.Info().Str("target", mount).Str("cmd", strings.Join(argv, " ")).Msg("Running checkpoint benchmark")

	if strings.Contains(a.ml.Command, "{output}") {
		f, err := a.artifact(outDir, types.SuiteML, CheckpointVariant)
		if err != nil {
			return err
		}
		f.Close()
		return a.exec.Stream(ctx, io.Discard, argv[0], argv[1:]...)
	}
	return a.runVariant(ctx, types.SuiteML, CheckpointVariant, outDir, func(ctx context.Context, w io.Writer) error {
		return a.exec.Stream(ctx, w, argv[0], argv[1:]...)
	})
}
