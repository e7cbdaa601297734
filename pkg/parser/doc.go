/*
Package parser turns the raw artifacts of a run directory into typed
records.

Each artifact kind has a Rule. A rule always reports the metrics it
expects; a metric it cannot find, or cannot convert, carries
types.NotAvailable rather than an error:

	fio (io_<variant>.txt)      <dir>_iops, <dir>_bandwidth_bps, <dir>_latency_usec
	mdtest (io_metadata.txt)    <operation>_ops from the "SUMMARY rate" mean column
	container_<variant>.txt     elapsed_seconds from "real <m>m<s>s", iterations
	ml_checkpoint.txt           save_seconds, load_seconds, model_size_bytes

Two pure converters are shared by the rules. ConvertUnit reads decimal
magnitude suffixes (k, M, G, T) and ConvertDuration reads "<m>m<s>s" as
seconds:

	parser.ConvertUnit("4k")           // 4000
	parser.ConvertDuration("1m30.50s") // 90.5
	parser.ConvertUnit("bogus")        // types.NotAvailable

ParseRunDir identifies a run from its run.json manifest, falling back to
the <label>_<filesystem>_<YYYYMMDD_HHMMSS> directory name, and ParseResults
walks a whole results tree.
*/
package parser
