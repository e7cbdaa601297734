/*
Package lifecycle drives a single Run through its state machine:

	Pending -> Formatted -> Mounted -> Monitoring -> Executing -> Collected -> Unmounted -> Destroyed
	                                  (any non-terminal state) -> Failed

Only one Run holds the shared mount point at a time. Before formatting,
the controller makes sure the mount point is free, unmounting a leftover
once; if it stays occupied the Run fails with a DeviceBusyError and the
device is never touched.

A failed format skips mounting. Unless the format was refused because the
device is the system device or busy, teardown still runs with the token
the driver would have produced. A failed mount still unmounts and
destroys. Monitoring failures are warnings, and a failed workload suite
is recorded on the Run without stopping the others.

Teardown always runs once the device may have been touched. It ignores
cancellation of the caller's context, logs every failed step at error
level with teardown=true, publishes events.EventTeardownFailed and
finally verifies that the mount point is unoccupied. A teardown failure
ends the Run in Failed with TeardownError set; the caller moves on to the
next pair.

After every transition the Run is saved to the ledger and to run.json in
its result directory.
*/
package lifecycle
