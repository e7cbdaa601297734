// Package analysis scores filesystems (and devices) against each other.
//
// Records are grouped per metric key (family/variant/metric) and per
// group, means are taken over available values only, and the means of
// each metric are min-max scaled to [0,1]. Lower-is-better metrics are
// inverted, so a higher score is always better, and a metric on which
// every group ties scores 0.5 for all of them.
package analysis
