// Command hevcprobe decodes a single Annex B HEVC elementary stream
// file and logs each output frame's POC, dimensions, and flags. It
// exists to exercise the decoder package end to end, not as a general
// playback or transcoding tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zsiec/hevccore/decoder"
)

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if len(os.Args) < 2 {
		slog.Error("usage: hevcprobe <path-to-annexb-hevc-file>")
		os.Exit(1)
	}

	cfg := decoder.DefaultConfig()
	cfg.ShowAllFrames = envBool("SHOW_ALL_FRAMES")
	cfg.OutputCorrupt = envBool("OUTPUT_CORRUPT")
	cfg.ApplyDefaultDisplayWindow = envBool("APPLY_DEFAULT_DISPLAY_WINDOW")

	path := os.Args[1]
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("failed to read input file", "path", path, "error", err)
		os.Exit(1)
	}

	d, err := decoder.Open(nil, cfg, log)
	if err != nil {
		slog.Error("failed to open decoder", "error", err)
		os.Exit(1)
	}
	defer d.Close()

	slog.Info("hevcprobe starting", "path", path, "bytes", len(data))

	if err := d.PushPacket(data, 0, 0); err != nil {
		slog.Error("push packet failed", "error", err)
	}
	drainFrames(d)

	d.Flush()
	drainFrames(d)
}

func drainFrames(d *decoder.Decoder) {
	for {
		f, ok := d.PullFrame()
		if !ok {
			return
		}
		logFrame(f)
	}
}

func logFrame(f decoder.Frame) {
	slog.Info("decoded frame",
		"poc", f.POC,
		"size", fmt.Sprintf("%dx%d", f.Width, f.Height),
		"bit_depth", f.BitDepth,
		"corrupt", f.Corrupt,
		"unavailable", f.Unavailable,
	)
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v != "" && v != "0" && v != "false"
}
