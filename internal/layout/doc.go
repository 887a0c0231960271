// Package layout holds the vendor definition of the gpu_metrics structures.
//
// The definitions are configuration data rather than code: a YAML document
// names every field of the common header and of each gpu_metrics_vX_Y
// revision, in declaration order, with its unsigned width and array count.
// Offsets and sizes are derived with C natural alignment, so a corrected or
// newer vendor header only needs a new document, not a rebuild.
//
// Field names are flattened: array elements are addressed as
// "temperature_core[3]" and nested struct members as
// "xcp_stats[1].gfx_busy_inst[0]".
package layout
