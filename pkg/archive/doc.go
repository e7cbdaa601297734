// Package archive uploads finished run directories to S3 or an
// S3-compatible store. Objects are keyed <prefix>/<run dir name>/<file>,
// so the artifact layout survives the upload unchanged.
package archive
