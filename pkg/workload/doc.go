/*
Package workload runs the three benchmark families against a mounted
filesystem and captures their raw output in the run directory.

  - RunIOSuite runs fio once per variant (randread, randwrite, seqread,
    seqwrite, randrw) and mdtest for metadata operations against the mount.
  - RunContainerOpsSuite times a cold image pull, an image build, and N
    sequential container start/stop cycles against the ambient runtime. It
    does not touch the mount.
  - RunMLCheckpointSuite runs the checkpoint collaborator with its model
    files under the mount.

Artifacts are named <family>_<variant>.txt (see types.ArtifactFileName).
Container timings are written the way the shell's time builtin prints them
("real\t0m1.234s") so the parser treats every family's elapsed time alike.

Suites are isolated from each other and variants within a suite are
isolated where possible. A failed variant keeps whatever output it produced,
flagged Partial; an empty artifact is removed. The suite returns its
SuiteResult together with a *types.WorkloadSuiteFailure naming the failed
variants. A panic inside a suite is recovered and recorded as a failure of
the variant that was running.
*/
package workload
