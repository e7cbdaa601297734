/*
Package storage persists the run ledger in a BoltDB file (fsbench.db) under
the configured state directory.

Two buckets are kept:

	runs    run ID -> JSON encoded types.Run (state, history, suite outcomes)
	latest  "<device>|<filesystem>" -> ID of the newest run for that pair

The lifecycle controller saves the Run after every transition, so an
interrupted matrix leaves an accurate record of how far each pair got. The
matrix runner's resume mode reads LatestByPair to skip pairs whose latest run
already reached the destroyed state, and the history command lists runs in
timestamp order.
*/
package storage
