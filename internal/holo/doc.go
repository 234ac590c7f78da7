// Package holo owns the per-frame reconstruction stages between raw
// holograms and detections: background estimation, depth-sweep volume
// building, segmentation, and 3D object localization.
//
// Responsibilities end at the per-frame detection list plus the EDOF and
// classical-reconstruction images; temporal association lives in tracking.
//
// Dependency rule: holo may depend on optics, config, and units, but never
// on tracking or pipeline.
package holo
