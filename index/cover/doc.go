// Package cover is an index backed by a cover tree. Tree distances are
// float32; results are re-checked in float64 so they match a scan exactly.
package cover
