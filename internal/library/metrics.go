package library

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var libraryAssets = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "omniscore_library_assets",
	Help: "Number of assets currently held in the library",
}, []string{"kind"})

func observeCounts(c Counts) {
	libraryAssets.WithLabelValues("image").Set(float64(c.Images))
	libraryAssets.WithLabelValues("video").Set(float64(c.Videos))
}
