package utils

import (
	"image"
	"runtime"
	"sync"

	"go.viam.com/utils"
)

// ParallelForEachPixel calls f for every [x, y] in size. Rows are split into one horizontal band
// per available processor and each band runs in its own goroutine. f must be safe to call
// concurrently for distinct pixels.
func ParallelForEachPixel(size image.Point, f func(x, y int)) {
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	bands := MinInt(runtime.GOMAXPROCS(0), size.Y)
	rowsPerBand := (size.Y + bands - 1) / bands
	var wg sync.WaitGroup
	for y0 := 0; y0 < size.Y; y0 += rowsPerBand {
		y1 := MinInt(y0+rowsPerBand, size.Y)
		wg.Add(1)
		utils.PanicCapturingGo(func() {
			defer wg.Done()
			for y := y0; y < y1; y++ {
				for x := 0; x < size.X; x++ {
					f(x, y)
				}
			}
		})
	}
	wg.Wait()
}
