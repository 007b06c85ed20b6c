// Package gpcc implements the decode path of an octree point-cloud codec.
//
// Geometry is coded as an octree whose occupancy bytes are entropy coded
// with contexts derived from neighbour occupancy, planarity and, for
// spinning LiDAR captures, the calibrated laser geometry. Attributes
// (colour or reflectance) are reconstructed with one of three transforms:
// the predicting transform, the lifting transform or RAHT.
//
// Decoding a slice:
//
//	dec := gpcc.NewDecoder(gps, gpcc.WithLogger(logger))
//	cloud, err := dec.DecodeSlice(ctx, slice)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Independent slices can be decoded concurrently:
//
//	clouds, err := dec.DecodeSlices(ctx, slices)
//
// The package also carries the matching encoders for the entropy layer and
// the octree so payloads can be produced for testing and tooling.
package gpcc
