package cosmoweb_test

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/hupe1980/cosmoweb"
	"github.com/hupe1980/cosmoweb/catalog"
	"github.com/hupe1980/cosmoweb/twopoint"
)

func Example() {
	ctx := context.Background()

	// A synthetic survey stripe: 40x10 degrees, z in [0.05, 0.15].
	rng := rand.New(rand.NewSource(42))
	src := make(catalog.SliceSource, 300)
	for i := range src {
		src[i] = catalog.Record{
			RA:  100 + 40*rng.Float64(),
			Dec: -5 + 10*rng.Float64(),
			Z:   0.05 + 0.1*rng.Float64(),
		}
	}

	engine, err := cosmoweb.New(
		cosmoweb.WithRandomRatio(5),
		cosmoweb.WithBinEdges(twopoint.LogEdges(5, 50, 8)),
		cosmoweb.WithVoidSeeds(1000),
		cosmoweb.WithFootprintTolerance(2),
		cosmoweb.WithRNGSeed(42),
	)
	if err != nil {
		log.Fatal(err)
	}

	data, summary, err := engine.Ingest(ctx, src)
	if err != nil {
		log.Fatal(err)
	}

	mask, err := engine.Footprint(data)
	if err != nil {
		log.Fatal(err)
	}

	randoms, err := engine.Randoms(ctx, mask, data.Len())
	if err != nil {
		log.Fatal(err)
	}

	profile, err := engine.Correlate(ctx, data, randoms)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(summary.Accepted, "galaxies")
	fmt.Println(randoms.Len(), "randoms")
	fmt.Println(len(profile.Bins), "separation bins")
	// Output:
	// 300 galaxies
	// 1500 randoms
	// 8 separation bins
}
