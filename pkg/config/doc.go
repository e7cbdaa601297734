/*
Package config loads the fsbench YAML configuration and resolves it into
Settings.

The document carries the device catalogue, the designated system device and
the knobs for each workload collaborator:

	system_device: /dev/sda
	mount_point: /mnt/testdisk
	results_dir: /srv/fsbench/results
	constrained: false
	devices:
	  /dev/sdb:
	    class: hdd
	    label: seagate-4tb
	  /dev/nvme1n1:
	    class: nvme
	    label: samsung-980
	monitoring:
	  strategies: [compose, exporter, builtin]
	workloads:
	  container:
	    image: docker.io/library/alpine:3.19
	    iterations: 10

Device entries are the unit of failure: a bad entry is dropped and reported
in Catalogue.Warnings, while a bad document fails Load with a
*types.ConfigurationError.

Settings is computed once, after flags are applied, and handed to the Matrix
Runner and Workload Adapter. Constrained mode shortens the idle baseline,
fio runtime and size, metadata item count and the container start/stop
iteration count.
*/
package config
