package obs

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// Всегда 1; метки несут версию, коммит и версию Go.
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "paycanvas_build_info",
			Help: "PayCanvas API build information.",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// InitBuildInfo registers the build info gauge once. An empty or "dev" commit
// falls back to the VCS revision stamped by the Go toolchain.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, resolveCommit(commit), runtime.Version()).Set(1)
}

func resolveCommit(commit string) string {
	if commit != "" && commit != "dev" {
		return commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
