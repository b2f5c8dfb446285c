// Package osm resolves station locations and raw track geometry from
// OpenStreetMap through the Overpass API.
package osm
