// Package railnet holds the geospatial graph algorithms of the scraper:
// the raw track-geometry graph, the rail finder that extracts one
// shortest-path rail per reachable neighbouring station, the resampling
// simplifier, and the station-connectivity analyzer that derives routing
// rules for trains.
package railnet
