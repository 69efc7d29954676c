package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"worldgen/internal/config"
	"worldgen/internal/digestdb"
	"worldgen/internal/generator"
	"worldgen/internal/transport/ws"
	"worldgen/internal/world"
)

const usage = `usage: worldgen <generate|verify|serve> [flags]

  generate  write region previews and snapshots
  verify    compare region digests against a ledger
  serve     stream region snapshots over websocket
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "generate":
		err = runGenerate(args)
	case "verify":
		err = runVerify(args)
	case "serve":
		err = runServe(args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", os.Args[1], err)
	}
}

type commonFlags struct {
	cfgPath string
	seed    int64
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.cfgPath, "config", "", "path to world configuration file (yaml or json)")
	fs.Int64Var(&c.seed, "seed", 0, "override the configured world seed")
}

func (c *commonFlags) context() (*generator.Context, error) {
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if c.seed != 0 {
		cfg.World.Seed = c.seed
	}
	return generator.NewContext(cfg, log.New(log.Writer(), "worldgen ", log.LstdFlags|log.Lmicroseconds))
}

// regionGrid lists the regions of a radius r square centred on (cx, cz).
func regionGrid(cx, cz, r int) []world.RegionCoord {
	out := make([]world.RegionCoord, 0, (2*r+1)*(2*r+1))
	for z := cz - r; z <= cz+r; z++ {
		for x := cx - r; x <= cx+r; x++ {
			out = append(out, world.RegionCoord{X: x, Z: z})
		}
	}
	return out
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	rx := fs.Int("rx", 0, "centre region x")
	rz := fs.Int("rz", 0, "centre region z")
	radius := fs.Int("radius", 0, "regions around the centre to generate")
	out := fs.String("out", "out", "output directory")
	zoom := fs.Float64("zoom", 0, "render one zoomed overview of this many blocks per cell instead")
	noSnapshot := fs.Bool("no-snapshot", false, "skip writing snapshots")
	_ = fs.Parse(args)

	gen, err := common.context()
	if err != nil {
		return err
	}
	defer gen.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if *zoom > 0 {
		size := float64(gen.Regions.Size())
		cx, cz := (float64(*rx)+0.5)*size, (float64(*rz)+0.5)*size
		region, err := gen.Regions.Zoomed(cx, cz, *zoom).Get()
		if err != nil {
			return err
		}
		path, err := world.SaveRegionPreview(region, filepath.Join(*out, fmt.Sprintf("zoom_%g", *zoom)))
		if err != nil {
			return err
		}
		gen.Logger().Printf("wrote %s", path)
		return nil
	}

	for _, coord := range regionGrid(*rx, *rz, *radius) {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		region, err := gen.Region(ctx, coord.X, coord.Z)
		if err != nil {
			return err
		}
		path, err := world.SaveRegionPreview(region, *out)
		if err != nil {
			return err
		}
		if !*noSnapshot {
			if err := world.SaveSnapshot(filepath.Join(*out, world.SnapshotName(coord.X, coord.Z)), region); err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
		}
		gen.Logger().Printf("region (%d,%d) digest=%s preview=%s in %s",
			coord.X, coord.Z, region.Digest()[:12], path, time.Since(start))
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	dbPath := fs.String("db", "digests.db", "sqlite digest ledger")
	radius := fs.Int("radius", 1, "regions around the origin to verify")
	parallel := fs.Int("parallel", 2, "regions generated concurrently")
	_ = fs.Parse(args)

	gen, err := common.context()
	if err != nil {
		return err
	}
	defer gen.Close()

	db, err := digestdb.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer db.Close()

	ctx, cancel := signalContext()
	defer cancel()

	seed := gen.Config.World.Seed
	hash := gen.Config.Hash()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*parallel, 1))
	for _, coord := range regionGrid(0, 0, *radius) {
		g.Go(func() error {
			region, err := gen.Regions.Region(coord.X, coord.Z).Get()
			if err != nil {
				return err
			}
			key := digestdb.Key{Seed: seed, ConfigHash: hash, RX: coord.X, RZ: coord.Z}
			fresh, err := db.Verify(gctx, key, region.Digest())
			if err != nil {
				return err
			}
			if fresh {
				gen.Logger().Printf("recorded %s", key)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var mismatch *digestdb.MismatchError
		if errors.As(err, &mismatch) {
			return fmt.Errorf("non-deterministic output: %w", err)
		}
		return err
	}
	n, err := db.Count(ctx, seed, hash)
	if err != nil {
		return err
	}
	gen.Logger().Printf("verified %d regions, ledger holds %d for seed %d", len(regionGrid(0, 0, *radius)), n, seed)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	addr := fs.String("addr", ":8090", "listen address")
	_ = fs.Parse(args)

	gen, err := common.context()
	if err != nil {
		return err
	}
	defer gen.Close()

	mux := http.NewServeMux()
	mux.Handle("/regions", ws.NewServer(gen, log.New(log.Writer(), "ws ", log.LstdFlags|log.Lmicroseconds)).Handler())
	srv := &http.Server{Addr: *addr, Handler: mux}

	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	gen.Logger().Printf("serving regions on %s/regions", *addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
