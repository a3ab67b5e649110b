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

	// Print file info
	fmt.Printf("GUID: %s\n", ds.GUID())
	fmt.Printf("Application: %s\n", ds.MetadataItem("APPLICATION", dgn.MetadataDomainDGN))
	fmt.Printf("Layers: %d\n", ds.LayerCount())

	// Iterate features of the first layer (model)
	layer := ds.Layer(0)
	fmt.Printf("Layer: %s\n", layer.Name())

	for {
		feature, err := layer.NextFeature()
		if err != nil {
			log.Fatal(err)
		}
		if feature == nil {
			break
		}
		fmt.Printf("  #%d %s: %s (level %d)\n",
			feature.ID(),
			feature.Class(),
			feature.Geom.GeometryType(),
			feature.Level)
	}
}
