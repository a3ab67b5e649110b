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

	// Skip annotation elements entirely
	layer.SetIgnoredFeatureClasses([]string{"Text"})

	// Keep filled shapes on levels 10-19 only
	layer.SetAttributeFilter(func(f *dgn.Feature) bool {
		return f.Filled && f.Level >= 10 && f.Level < 20
	})

	for {
		feature, err := layer.NextFeature()
		if err != nil {
			log.Fatal(err)
		}
		if feature == nil {
			break
		}
		fmt.Printf("#%d %s on level %d, fill color %d\n",
			feature.ID(), feature.Class(), feature.Level, feature.FillColor)

		// Attribute record as a map, keyed by the Field* names
		for key, value := range feature.Attributes() {
			fmt.Printf("  %s = %v\n", key, value)
		}
	}
}
