// Package viewer exposes the stored records and clusters in the shape an
// external tree view or 3D renderer consumes.
package viewer
