package main

import (
	"fmt"
	"log"

	"github.com/beetlebugorg/dgn/pkg/dgn"
)

func main() {
	// Open design file
	ds, err := dgn.Open("plant.dgn")
	if err != nil {
		log.Fatal(err)
	}
	defer ds.Close()

	layer := ds.Layer(0)

	// Full drawing extent
	extent := layer.Extent(false)
	fmt.Printf("Extent: [%.2f,%.2f] to [%.2f,%.2f]\n",
		extent.MinX, extent.MinY, extent.MaxX, extent.MaxY)

	// Restrict iteration to a viewport (R-tree backed, O(log n))
	viewport := dgn.Envelope{
		MinX: 100, MinY: 100,
		MaxX: 500, MaxY: 400,
	}
	layer.SetSpatialFilter(&viewport)

	count := 0
	for {
		feature, err := layer.NextFeature()
		if err != nil {
			log.Fatal(err)
		}
		if feature == nil {
			break
		}
		count++
		fmt.Printf("  %s: %s\n", feature.Class(), feature.Geom.GeometryType())
	}
	fmt.Printf("Visible features: %d\n", count)

	// Clear the filter to see everything again
	layer.SetSpatialFilter(nil)
	layer.ResetReading()
}
