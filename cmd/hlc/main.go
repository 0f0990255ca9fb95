// Command hlc is the command-line front end for the compression engine:
// compress, decompress, info, validate, estimate, and benchmark
// subcommands wired to the core chunker/analyzer/pipeline/scheduler/
// format packages.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/FairForge/hlc/internal/checksum"
	"github.com/FairForge/hlc/internal/chunker"
	"github.com/FairForge/hlc/internal/common"
	"github.com/FairForge/hlc/internal/config"
	"github.com/FairForge/hlc/internal/entropy"
	"github.com/FairForge/hlc/internal/format"
	"github.com/FairForge/hlc/internal/herrors"
	"github.com/FairForge/hlc/internal/logger"
	"github.com/FairForge/hlc/internal/metrics"
	"github.com/FairForge/hlc/internal/pipeline"
	"github.com/FairForge/hlc/internal/scheduler"
)

const (
	exitOK         = 0
	exitGeneric    = 1
	exitInvalidArg = 2
	exitIntegrity  = 3
	exitIO         = 4
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: hlc <compress|decompress|info|validate|estimate|benchmark> [flags]")
		return exitInvalidArg
	}

	zl, err := zap.NewProduction()
	if err != nil {
		zl = zap.NewNop()
	}
	log := logger.New(zl)
	defer zl.Sync()

	switch args[0] {
	case "compress":
		return cmdCompress(args[1:], log)
	case "decompress":
		return cmdDecompress(args[1:], log)
	case "info":
		return cmdInfo(args[1:], log)
	case "validate":
		return cmdValidate(args[1:], log)
	case "estimate":
		return cmdEstimate(args[1:], log)
	case "benchmark":
		return cmdBenchmark(args[1:], log)
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[0])
		return exitInvalidArg
	}
}

func cmdCompress(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("compress", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	out := fs.String("out", "", "output file path (default stdout)")
	configPath := fs.String("config", "", "YAML config file path")
	mode := fs.String("mode", "balanced", "entropy mode: balanced|max|fast")
	checksumFlag := fs.String("checksum", "crc32", "checksum type: crc32|sha256")
	threads := fs.Int("threads", 0, "worker threads (0 = auto)")
	writeIndex := fs.Bool("write-index", false, "emit a trailing chunk index")
	policy := fs.String("policy", "adaptive", "chunking policy: fixed|adaptive")
	chunkSize := fs.Int("chunk-size", 65536, "fixed chunk size in bytes")
	chunkMin := fs.Int("chunk-min", 1024, "adaptive chunk_size_min")
	chunkMax := fs.Int("chunk-max", 65536, "adaptive chunk_size_max")
	metricsPort := fs.Int("metrics-port", 0, "serve Prometheus metrics on this port (0 disables)")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	cfg := config.Config{}
	if *configPath != "" {
		fileCfg, err := config.LoadFromFile(*configPath)
		if err != nil {
			log.Error("load config file", zap.Error(err))
			return exitInvalidArg
		}
		cfg = fileCfg
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mode":
			cfg.Engine.Mode = *mode
		case "checksum":
			cfg.Engine.ChecksumType = *checksumFlag
		case "threads":
			cfg.Engine.Threads = *threads
		case "write-index":
			cfg.Engine.WriteIndex = *writeIndex
		case "policy":
			cfg.Chunker.Policy = *policy
		case "chunk-size":
			cfg.Chunker.Size = *chunkSize
		case "chunk-min":
			cfg.Chunker.SizeMin = *chunkMin
		case "chunk-max":
			cfg.Chunker.SizeMax = *chunkMax
		case "metrics-port":
			cfg.Server.MetricsPort = *metricsPort
		}
	})

	cfg = cfg.WithDefaults()
	config.LoadFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return exitInvalidArg
	}
	if cfg.Server.MetricsPort != 0 {
		*metricsPort = cfg.Server.MetricsPort
	}

	ct, ok := checksum.ParseType(cfg.Engine.ChecksumType)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown checksum type %q\n", cfg.Engine.ChecksumType)
		return exitInvalidArg
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	stopMetrics := maybeServeMetrics(*metricsPort, reg, log)
	defer stopMetrics()

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("read input", zap.Error(err))
		return exitIO
	}

	dst, closeDst, err := openOutput(*out)
	if err != nil {
		log.Error("open output", zap.Error(err))
		return exitIO
	}
	defer closeDst()

	chunks, err := chunker.Split(data, chunkerConfigFrom(cfg.Chunker))
	if err != nil {
		log.Error("chunk input", zap.Error(err))
		return exitFromError(err)
	}

	jobID := uuid.New().String()
	ctx := common.WithJobID(context.Background(), jobID)
	log = log.With(zap.String("job_id", jobID))
	log.Info("compress started", zap.Int("chunks", len(chunks)), zap.Int("threads", cfg.Engine.Threads))

	w := format.NewWriter(dst, ct, cfg.Engine.WriteIndex)
	pcfg := pipeline.Config{
		ChecksumType:               ct,
		Mode:                       entropy.Mode(cfg.Engine.Mode),
		ExpansionThresholdPerMille: cfg.Engine.StoreRawExpansionThreshold,
	}

	runErr := scheduler.Run(ctx, chunks, cfg.Engine.Threads, pcfg, func(rec format.ChunkRecord) error {
		if rec.Header.TransformFlags.StoredRaw() {
			collector.StoredRawTotal.Inc()
		}
		collector.ChunksProcessed.WithLabelValues("ok").Inc()
		collector.ChunkBytesIn.Add(float64(rec.Header.OriginalSize))
		collector.ChunkBytesOut.Add(float64(rec.Header.CompressedSize))
		return w.WriteChunk(rec)
	})
	if runErr != nil {
		log.Error("compress", zap.Error(runErr))
		return exitFromError(runErr)
	}
	if err := w.Close(); err != nil {
		log.Error("finalize container", zap.Error(err))
		return exitIO
	}
	log.Info("compress finished")
	return exitOK
}

func cmdDecompress(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("decompress", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	out := fs.String("out", "", "output file path (default stdout)")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	rd, err := format.NewReader(src)
	if err != nil {
		log.Error("read container header", zap.Error(err))
		return exitFromError(err)
	}

	dst, closeDst, err := openOutput(*out)
	if err != nil {
		log.Error("open output", zap.Error(err))
		return exitIO
	}
	defer closeDst()

	index := 0
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("read chunk record", zap.Error(err))
			return exitFromError(err)
		}
		decoded, err := pipeline.DecodeChunk(index, rec, rd.Header.ChecksumType)
		if err != nil {
			log.Error("decode chunk", zap.Int("chunk", index), zap.Error(err))
			return exitFromError(err)
		}
		if _, err := dst.Write(decoded); err != nil {
			log.Error("write output", zap.Error(err))
			return exitIO
		}
		index++
	}
	return exitOK
}

func cmdInfo(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	rd, err := format.NewReader(src)
	if err != nil {
		log.Error("read container header", zap.Error(err))
		return exitFromError(err)
	}

	fmt.Printf("magic: %s\n", format.Magic)
	fmt.Printf("checksum_type: %s\n", rd.Header.ChecksumType)
	fmt.Printf("chunk_count: %d\n", rd.Header.ChunkCount)
	fmt.Printf("original_size: %d\n", rd.Header.OriginalSize)
	fmt.Printf("compressed_size: %d\n", rd.Header.CompressedSize)
	fmt.Printf("has_chunk_index: %t\n", rd.Header.Flags&format.HasChunkIndex != 0)

	var storedRaw int
	index := 0
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("read chunk record", zap.Error(err))
			return exitFromError(err)
		}
		if rec.Header.TransformFlags.StoredRaw() {
			storedRaw++
		}
		index++
	}
	fmt.Printf("chunks_stored_raw: %d\n", storedRaw)
	return exitOK
}

func cmdValidate(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	rd, err := format.NewReader(src)
	if err != nil {
		log.Error("read container header", zap.Error(err))
		return exitFromError(err)
	}

	var total uint64
	index := 0
	for {
		rec, err := rd.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("read chunk record", zap.Error(err))
			return exitFromError(err)
		}
		decoded, err := pipeline.DecodeChunk(index, rec, rd.Header.ChecksumType)
		if err != nil {
			log.Error("integrity check failed", zap.Int("chunk", index), zap.Error(err))
			return exitIntegrity
		}
		total += uint64(len(decoded))
		index++
	}
	if uint32(index) != rd.Header.ChunkCount {
		log.Error("chunk count mismatch", zap.Int("read", index), zap.Uint32("declared", rd.Header.ChunkCount))
		return exitIntegrity
	}
	if total != rd.Header.OriginalSize {
		log.Error("original size mismatch", zap.Uint64("computed", total), zap.Uint64("declared", rd.Header.OriginalSize))
		return exitIntegrity
	}
	fmt.Println("ok")
	return exitOK
}

func cmdEstimate(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("estimate", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	mode := fs.String("mode", "balanced", "entropy mode: balanced|max|fast")
	policy := fs.String("policy", "adaptive", "chunking policy: fixed|adaptive")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("read input", zap.Error(err))
		return exitIO
	}

	defaulted := config.Config{Chunker: config.ChunkerConfig{Policy: *policy}}.WithDefaults()
	chunks, err := chunker.Split(data, chunkerConfigFrom(defaulted.Chunker))
	if err != nil {
		log.Error("chunk input", zap.Error(err))
		return exitFromError(err)
	}

	pcfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Mode(*mode)}
	var totalIn, totalOut uint64
	for _, c := range chunks {
		rec, err := pipeline.EncodeChunk(c.Index, c.Data, pcfg)
		if err != nil {
			log.Error("estimate chunk", zap.Error(err))
			return exitFromError(err)
		}
		totalIn += uint64(rec.Header.OriginalSize)
		totalOut += uint64(rec.Header.CompressedSize) + format.ChunkHeaderSize
	}
	fmt.Printf("original_size: %d\n", totalIn)
	fmt.Printf("estimated_compressed_size: %d\n", totalOut+format.GlobalHeaderSize)
	fmt.Printf("ratio: %.4f\n", metrics.CompressionRatio(totalIn, totalOut))
	return exitOK
}

func cmdBenchmark(args []string, log *logger.Logger) int {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	in := fs.String("in", "", "input file path (default stdin)")
	mode := fs.String("mode", "balanced", "entropy mode: balanced|max|fast")
	threads := fs.Int("threads", 0, "worker threads (0 = auto)")
	if err := fs.Parse(args); err != nil {
		return exitInvalidArg
	}

	src, closeSrc, err := openInput(*in)
	if err != nil {
		log.Error("open input", zap.Error(err))
		return exitIO
	}
	defer closeSrc()

	data, err := io.ReadAll(src)
	if err != nil {
		log.Error("read input", zap.Error(err))
		return exitIO
	}

	cfg := config.Config{Engine: config.EngineConfig{Mode: *mode, Threads: *threads}}.WithDefaults()
	chunks, err := chunker.Split(data, chunkerConfigFrom(cfg.Chunker))
	if err != nil {
		log.Error("chunk input", zap.Error(err))
		return exitFromError(err)
	}
	pcfg := pipeline.Config{ChecksumType: checksum.CRC32, Mode: entropy.Mode(cfg.Engine.Mode)}

	start := time.Now()
	var total uint64
	err = scheduler.Run(context.Background(), chunks, cfg.Engine.Threads, pcfg, func(rec format.ChunkRecord) error {
		total += uint64(rec.Header.CompressedSize)
		return nil
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Error("benchmark", zap.Error(err))
		return exitFromError(err)
	}

	mbPerSec := float64(len(data)) / elapsed.Seconds() / (1024 * 1024)
	fmt.Printf("threads: %d\n", cfg.Engine.Threads)
	fmt.Printf("input_bytes: %d\n", len(data))
	fmt.Printf("elapsed: %s\n", elapsed)
	fmt.Printf("throughput_mib_s: %.2f\n", mbPerSec)
	fmt.Printf("compressed_bytes: %d\n", total)
	return exitOK
}

func chunkerConfigFrom(c config.ChunkerConfig) chunker.Config {
	if c.Policy == "fixed" {
		return chunker.Config{Policy: chunker.Fixed, Size: c.Size}
	}
	return chunker.Config{Policy: chunker.Adaptive, Min: c.SizeMin, Target: c.SizeTarget, Max: c.SizeMax}
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func maybeServeMetrics(port int, reg *prometheus.Registry, log *logger.Logger) func() {
	if port <= 0 {
		return func() {}
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func exitFromError(err error) int {
	var herr *herrors.Error
	if errors.As(err, &herr) {
		switch herr.Kind {
		case herrors.InvalidFormat, herrors.CorruptPayload, herrors.Truncated:
			return exitIntegrity
		case herrors.IoError:
			return exitIO
		case herrors.ConfigError:
			return exitInvalidArg
		default:
			return exitGeneric
		}
	}
	return exitGeneric
}
