package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/dgn/pkg/dgn"
)

func main() {
	// Create a new design file with a single empty model
	ds, err := dgn.Create("site.dgn", dgn.CreateOptions{
		Application:  "creating-features example",
		MasterUnit:   "m",
		DefaultModel: "Site",
	})
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Close()

	layer := ds.LayerByName("Site")

	// A building outline with a courtyard: polygon with one hole
	building := &dgn.Feature{
		Geom: &dgn.Polygon{
			Exterior: &dgn.LineString{Points: []dgn.Point{
				{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 25}, {X: 0, Y: 25}, {X: 0, Y: 0},
			}},
			Interiors: []dgn.Curve{
				&dgn.LineString{Points: []dgn.Point{
					{X: 15, Y: 8}, {X: 25, Y: 8}, {X: 25, Y: 17}, {X: 15, Y: 17}, {X: 15, Y: 8},
				}},
			},
		},
		Level:     10,
		Filled:    true,
		FillColor: 3,
	}
	if err := layer.CreateFeature(building); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Building element: #%d (%s)\n", building.ID(), building.Class())

	// A label anchored at the entrance
	label := &dgn.Feature{
		Geom:       dgn.Point{X: 20, Y: -2},
		Text:       "Main entrance",
		TextHeight: 1.5,
		Level:      60,
	}
	if err := layer.CreateFeature(label); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Label element: #%d (%s)\n", label.ID(), label.Class())

	// Persist; Close would flush as well
	if err := ds.FlushCache(false); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Wrote site.dgn")
}
