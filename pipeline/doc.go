// Package pipeline runs the import, preprocessing, embedding and clustering
// stages against one store. Each stage runs on its own worker with its own
// session; stages never overlap.
package pipeline
