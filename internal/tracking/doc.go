// Package tracking links per-frame 3D detections into persistent tracks.
//
// The tracker is a greedy state machine over frames: detections are matched
// to existing tracks through an XY gating radius derived from the observed
// motion scale, ambiguous matches are settled by velocity consistency, and
// unmatched detections seed new tracks. Tracks are never deleted, merged or
// split; an unobserved frame is recorded as an absent slot.
//
// The package is unit-agnostic: positions flow through in whatever grid the
// caller uses (the pipeline feeds pixel/depth-index coordinates and converts
// to micrometres only when exporting tables).
//
// tracking may depend on config and monitoring, nothing else in internal/.
package tracking
