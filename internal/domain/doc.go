// Package domain models the data that flows through a detection pass over a
// gridded scalar archive.
//
// # Grid Conventions
//
// Every field is sampled on a fixed set of N nodes. Node coordinates are held
// in radians by the grid package; records leaving the service carry degrees.
// Regular latitude-longitude archives index nodes row-major:
//
//	index = row*nLon + col    row 0 is the first latitude in the archive
//
// A [Field] is a flat slice of N values aligned with one grid. It is rebuilt
// every timestep and is never shared between timesteps.
//
// # Features
//
// Two feature families are produced:
//
//	cyclone            pressure minima that survive the warm-core and
//	                   Laplacian filters, characterized by the peak wind
//	                   found within a geodesic radius
//	atmospheric_river  connected components of a thresholded moisture mask
//	                   that meet a minimum node count
//
// # Distances
//
// All distances are great-circle angles in degrees. Configuration never
// accepts a distance above 180 degrees; see [ErrConfiguration].
//
// # Record IDs
//
// Candidate and river IDs are SHA-1 namespace UUIDs of feature|timestep|node,
// so replaying an archive produces the same keys downstream. See [recordID].
package domain
