// Package matrix enumerates the (device, filesystem) matrix and runs each
// pair through the lifecycle controller, one at a time.
//
// The order is fixed: device classes hdd, ssd, nvme; devices in catalogue
// order, never the system device; filesystems in configured order
// (ext4, xfs, btrfs, zfs by default). Before the first pair an idle
// baseline is recorded with monitoring up. With Options.Resume, pairs whose
// latest ledger entry reached Destroyed are skipped, so a pass killed from
// outside can be re-entered.
package matrix
