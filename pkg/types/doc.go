/*
Package types defines the data model shared by every fsbench component.

  - Device, DeviceClass: catalogue entries, immutable for a process lifetime
  - FilesystemKind: the closed set ext4, xfs, btrfs, zfs, overlay
  - Run, RunState, Transition: one (device, filesystem) trial and its
    lifecycle history
  - Artifact, SuiteResult: raw workload outputs and per-family outcomes
  - Record, Value, Score: parsed readings and derived comparative scores
  - errors.go: the error taxonomy

Value is a small comparable struct rather than a float with a magic number:
NotAvailable is its zero value, so parsers that fail to fill a reading
produce NotAvailable by construction and aggregation can skip it instead of
averaging in a zero.

The two naming contracts the parser relies on live here as well:
RunDirName (<label>_<filesystem>_<YYYYMMDD_HHMMSS>) and ArtifactFileName
(<family>_<variant>.txt).
*/
package types
