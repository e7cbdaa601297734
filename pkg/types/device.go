package types

import "strings"

// IsPartitionOf reports whether candidate names a partition of disk. A disk
// whose name ends in a digit (nvme0n1, loop1, mmcblk0) numbers its
// partitions after a "p" (nvme0n1p2); any other disk appends the number
// directly (sda1). /dev/nvme0n10 is a separate namespace, not a partition
// of /dev/nvme0n1.
func IsPartitionOf(candidate, disk string) bool {
	rest, ok := strings.CutPrefix(candidate, disk)
	if !ok || disk == "" {
		return false
	}
	if last := disk[len(disk)-1]; last >= '0' && last <= '9' {
		if rest, ok = strings.CutPrefix(rest, "p"); !ok {
			return false
		}
	}
	return rest != "" && strings.Trim(rest, "0123456789") == ""
}
