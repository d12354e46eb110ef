// Package pcd holds the shared data model for node-posed point clouds.
//
// A point cloud arrives as two documents: a pose document giving one 4×4
// transform per node, and a columnar point document whose rows carry a node
// id, a node-local position and an RGB colour. The sub-packages turn these
// into a single global-space RenderBuffer:
//
//	source   document bytes from disk or memory
//	pose     pose document parsing and anchor re-centering
//	points   columnar (Arrow/Parquet) decoding with the zero-axis filter
//	merge    local to global transform and colour encoding
//	pipeline one-shot hand-off between the concurrent decode paths
//	preview  PNG and HTML quick looks at a render buffer
//	storage/sqlite  load history
//
// Key types: RawPose, NodeTransform, TransformMap, RawPoint, PointCloud,
// RenderBuffer.
package pcd
