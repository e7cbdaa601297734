package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cuemby/fsbench/pkg/types"
)

// fioJob is one I/O variant
type fioJob struct {
	Variant string
	RW      string
	BS      string
}

// FioJobs lists the I/O variants in execution order
var FioJobs = []fioJob{
	{Variant: "randread", RW: "randread", BS: "4k"},
	{Variant: "randwrite", RW: "randwrite", BS: "4k"},
	{Variant: "seqread", RW: "read", BS: "1M"},
	{Variant: "seqwrite", RW: "write", BS: "1M"},
	{Variant: "randrw", RW: "randrw", BS: "4k"},
}

// MetadataVariant names the mdtest artifact
const MetadataVariant = "metadata"

// RunIOSuite runs every fio variant and then mdtest against mount,
// writing one artifact per variant into outDir
func (a *Adapter) RunIOSuite(ctx context.Context, mount, outDir string) (res types.SuiteResult, err error) {
	s := a.newSuite(types.SuiteIO, outDir)
	start := a.now()
	var current string
	defer a.finish(s, start, &current, &res, &err)

	for _, job := range FioJobs {
		current = job.Variant
		if err := a.runFio(ctx, job, mount, outDir); err != nil {
			a.logger.Error().Err(err).Str("variant", job.Variant).Msg("I/O variant failed")
			s.fail(job.Variant, err)
			continue
		}
		s.ok(job.Variant)
	}

	current = MetadataVariant
	if err := a.runMdtest(ctx, mount, outDir); err != nil {
		a.logger.Error().Err(err).Msg("Metadata benchmark failed")
		s.fail(MetadataVariant, err)
	} else {
		s.ok(MetadataVariant)
	}
	return
}

func (a *Adapter) runFio(ctx context.Context, job fioJob, mount, outDir string) error {
	f, err := a.artifact(outDir, types.SuiteIO, job.Variant)
	if err != nil {
		return err
	}
	defer f.Close()
	// fio lays its data file out as <name>.0.0 in the target directory
	defer os.Remove(filepath.Join(mount, job.Variant+".0.0"))

	args := []string{
		"--name=" + job.Variant,
		"--directory=" + mount,
		"--rw=" + job.RW,
		"--bs=" + job.BS,
		"--size=" + a.io.Size,
		"--runtime=" + strconv.Itoa(int(a.io.Runtime/time.Second)),
		"--time_based",
		"--ioengine=libaio",
		"--direct=1",
		"--iodepth=" + strconv.Itoa(a.io.IODepth),
		"--numjobs=1",
		"--group_reporting",
	}
	if job.RW == "randrw" {
		args = append(args, "--rwmixread=70")
	}

	a.logger.Info().Str("variant", job.Variant).Str("target", mount).Msg("Running fio")
	return a.exec.Stream(ctx, f, a.io.FioBinary, args...)
}

func (a *Adapter) runMdtest(ctx context.Context, mount, outDir string) error {
	dir := filepath.Join(mount, "mdtest")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create mdtest directory: %w", err)
	}
	defer os.RemoveAll(dir)

	f, err := a.artifact(outDir, types.SuiteIO, MetadataVariant)
	if err != nil {
		return err
	}
	defer f.Close()

	a.logger.Info().Str("target", dir).Int("items", a.io.MetadataItems).Msg("Running mdtest")
	return a.exec.Stream(ctx, f, a.io.MdtestBinary,
		"-n", strconv.Itoa(a.io.MetadataItems),
		"-i", "1",
		"-u",
		"-d", dir,
	)
}
