package layout

import (
	"testing"

	"github.com/docfirma/docfirma/internal/doc"
)

func sizes(dims ...[2]float64) []doc.PageInfo {
	pages := make([]doc.PageInfo, len(dims))
	for i, d := range dims {
		pages[i] = doc.PageInfo{Ref: doc.PageRef(i), Width: d[0], Height: d[1]}
	}
	return pages
}

func TestDetectDominantSize(t *testing.T) {
	cases := []struct {
		name  string
		pages []doc.PageInfo
		want  Geometry
	}{
		{"empty falls back to A4", nil, Geometry{A4Width, A4Height}},
		{"single page wins", sizes([2]float64{612, 792}), Geometry{612, 792}},
		{"majority wins", sizes([2]float64{600, 800}, [2]float64{600, 800}, [2]float64{612, 792}), Geometry{600, 800}},
		{"tie breaks to first encountered", sizes([2]float64{612, 792}, [2]float64{600, 800}), Geometry{612, 792}},
		{"late majority still wins", sizes([2]float64{612, 792}, [2]float64{600, 800}, [2]float64{600, 800}), Geometry{600, 800}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectDominantSize(c.pages); got != c.want {
				t.Fatalf("got %+v, want %+v", got, c.want)
			}
		})
	}
}
