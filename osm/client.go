package osm

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/DelaTrain/scraper/geo"
	"github.com/DelaTrain/scraper/model"
	"github.com/DelaTrain/scraper/railnet"
)

const queryHeader = "[out:json][timeout:600];"

// meters of latitude per degree; longitude is scaled by cos(lat).
const metersPerDegree = 111320.0

// Client queries the Overpass API. The station gazetteer for the
// configured area is fetched once and memoized for the client's lifetime.
type Client struct {
	httpClient  *http.Client
	overpassURL string
	area        string
	userAgent   string

	stations map[string]gazetteerEntry
}

type gazetteerEntry struct {
	position geo.Position
	kind     string // railway tag value, "station" or "halt"
}

func NewClient(overpassURL, area, userAgent string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Minute},
		overpassURL: overpassURL,
		area:        area,
		userAgent:   userAgent,
	}
}

type overpassCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Center   *overpassCoord    `json:"center"`
	Nodes    []int64           `json:"nodes"`
	Geometry []overpassCoord   `json:"geometry"`
	Tags     map[string]string `json:"tags"`
}

// overpassResponse holds the OSM data queried via the Overpass API.
type overpassResponse struct {
	Version   float64           `json:"version"`
	Generator string            `json:"generator"`
	Elements  []overpassElement `json:"elements"`
}

func (c *Client) query(query string) (*overpassResponse, error) {
	form := url.Values{"data": {query}}
	req, err := http.NewRequest(http.MethodPost, c.overpassURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass: unexpected status %s", resp.Status)
	}
	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("overpass: %w", err)
	}
	return &parsed, nil
}

func (e overpassElement) position() geo.Position {
	if e.Center != nil {
		return geo.Position{Latitude: e.Center.Lat, Longitude: e.Center.Lon}
	}
	return geo.Position{Latitude: e.Lat, Longitude: e.Lon}
}

func (c *Client) loadGazetteer() error {
	if c.stations != nil {
		return nil
	}
	query := fmt.Sprintf(
		`%sarea[name=%q]->.searchArea;nwr["railway"~"^(station|halt)$"](area.searchArea);out center;`,
		queryHeader, c.area)
	parsed, err := c.query(query)
	if err != nil {
		return err
	}
	stations := make(map[string]gazetteerEntry, len(parsed.Elements))
	for _, element := range parsed.Elements {
		name := element.Tags["name"]
		if name == "" {
			continue
		}
		entry := gazetteerEntry{position: element.position(), kind: element.Tags["railway"]}
		// A full station outranks a halt carrying the same name.
		if existing, ok := stations[name]; ok && existing.kind == "station" && entry.kind != "station" {
			continue
		}
		stations[name] = entry
	}
	c.stations = stations
	return nil
}

// ResolveStation looks a station name up in the area gazetteer. A name
// OpenStreetMap does not know yields a nil station and no error.
func (c *Client) ResolveStation(name string) (*model.Station, error) {
	if err := c.loadGazetteer(); err != nil {
		return nil, err
	}
	entry, ok := c.stations[name]
	if !ok {
		return nil, nil
	}
	return &model.Station{Name: name, Location: entry.position}, nil
}

// TrackGraph fetches the rail geometry within radiusM of center and builds
// the adjacency graph the rail finder searches. Tracks under construction
// are included; the network ahead of a scrape is often newer than the map.
func (c *Client) TrackGraph(center geo.Position, radiusM float64) (*railnet.TrackGraph, error) {
	dLat := radiusM / metersPerDegree
	dLon := radiusM / (metersPerDegree * math.Cos(center.Latitude*math.Pi/180))
	query := fmt.Sprintf(
		`%sway["railway"~"^(rail|construction)$"](%f,%f,%f,%f);out geometry;`,
		queryHeader,
		center.Latitude-dLat, center.Longitude-dLon,
		center.Latitude+dLat, center.Longitude+dLon)
	parsed, err := c.query(query)
	if err != nil {
		return nil, err
	}

	graph := railnet.NewTrackGraph()
	for _, element := range parsed.Elements {
		if element.Type != "way" || len(element.Nodes) != len(element.Geometry) {
			continue
		}
		speeds := parseMaxspeed(element.Tags["maxspeed"])
		for i, id := range element.Nodes {
			graph.AddNode(railnet.NodeID(id), geo.Position{
				Latitude:  element.Geometry[i].Lat,
				Longitude: element.Geometry[i].Lon,
			})
			if i > 0 {
				graph.AddSegment(railnet.NodeID(element.Nodes[i-1]), railnet.NodeID(id), speeds)
			}
		}
	}
	return graph, nil
}

// parseMaxspeed reads an OSM maxspeed tag. Multi-valued tags like
// "100;120" contribute every numeric part; non-numeric values such as
// "none" are skipped.
func parseMaxspeed(tag string) []float64 {
	if tag == "" {
		return nil
	}
	var speeds []float64
	for _, part := range strings.Split(tag, ";") {
		if v, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err == nil && v > 0 {
			speeds = append(speeds, v)
		}
	}
	return speeds
}
