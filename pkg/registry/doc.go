// Package registry holds the device catalogue in memory and answers the
// three questions the rest of fsbench asks of it: which devices of a class
// may be tested, is a path the protected system device, and what label
// names a device in result directories.
//
// Detect re-derives a catalogue from the live block device list (lsblk) for
// the detect-devices command.
package registry
