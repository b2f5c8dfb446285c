// Package pkp scrapes the rozklad-pkp train search service: station
// timetable listings and full train itineraries, including the subtrain
// splitting the service applies when one published entry covers several
// physical trains.
package pkp
