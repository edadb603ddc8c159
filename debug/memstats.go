package debug

// Memory/RSS periodic logger enabled in debug mode. Logs the resident set
// along with Go heap stats to tell native growth (screen grabs, Tk photos)
// from heap growth.

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// StartMemLogger logs memory stats every interval until ctx ends. RSS and
// CPU queries are best effort; the first failure is logged and later ones
// are suppressed.
func StartMemLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		return
	}
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("memlog: process handle unavailable", slog.String("err", err.Error()))
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			rss, err := residentSet(proc)
			if err != nil && !rssErrLogged {
				logger.Warn("memlog: rss query failed", slog.String("err", err.Error()))
				rssErrLogged = true
			}
			var cpu float64
			if proc != nil {
				cpu, _ = proc.Percent(0)
			}
			logger.Info("memstats",
				slog.Int("goroutines", runtime.NumGoroutine()),
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("heap_idle", ms.HeapIdle),
				slog.Uint64("heap_sys", ms.HeapSys),
				slog.Uint64("next_gc", ms.NextGC),
				slog.Uint64("rss", rss),
				slog.Float64("cpu_percent", cpu),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			)
		}
	}()
}
