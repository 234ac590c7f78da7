// Package pipeline orchestrates a full reconstruction and tracking run.
//
// A Run owns the per-run state: the shared optical geometry, kernel and
// background are built once, per-frame reconstruction (volume sweep,
// segmentation, localization) fans out over frame workers into pre-sized
// frame-indexed containers, and the tracker consumes the detections
// sequentially in frame order as the single writer of the track table.
//
// pipeline sits on top of optics, holo and tracking; nothing below it
// imports it.
package pipeline
