// Command viewshed computes terrain-aware viewsheds for one or more
// ground-based sensors and emits them as GeoJSON polygons.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/paulmach/orb"

	"github.com/ridgeline-gis/viewshed/internal/cache"
	"github.com/ridgeline-gis/viewshed/internal/config"
	"github.com/ridgeline-gis/viewshed/internal/dem"
	"github.com/ridgeline-gis/viewshed/internal/diag"
	"github.com/ridgeline-gis/viewshed/internal/fsutil"
	"github.com/ridgeline-gis/viewshed/internal/geo"
	"github.com/ridgeline-gis/viewshed/internal/mask"
	"github.com/ridgeline-gis/viewshed/internal/mva"
	"github.com/ridgeline-gis/viewshed/internal/outputsink"
	"github.com/ridgeline-gis/viewshed/internal/raster"
	"github.com/ridgeline-gis/viewshed/internal/sensor"
	"github.com/ridgeline-gis/viewshed/internal/sensorsource"
	"github.com/ridgeline-gis/viewshed/internal/timeutil"
	"github.com/ridgeline-gis/viewshed/internal/unionbuilder"
	"github.com/ridgeline-gis/viewshed/internal/worker"
	"github.com/ridgeline-gis/viewshed/internal/zone"
)

var (
	configFile  = flag.String("config", "", "path to JSON run configuration file")
	sensorsFile = flag.String("sensors", "", "path to sensor CSV file")
	demPathFlag = flag.String("dem", "", "path to a gob+gzip-encoded DEM file")
	outDir      = flag.String("out", "./viewshed-out", "output directory for GeoJSON artifacts")
	targetAlts  = flag.String("target-altitudes-m", "0", "comma-separated target altitudes in metres")
	versionFlag = flag.Bool("version", false, "print version information and exit")
)

const programVersion = "0.1.0"

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("viewshed v%s\n", programVersion)
		return
	}

	if *sensorsFile == "" || *demPathFlag == "" {
		log.Fatal("both -sensors and -dem are required")
	}

	cfg := config.EmptyRunConfig()
	if *configFile != "" {
		loaded, err := config.LoadRunConfig(*configFile)
		if err != nil {
			log.Fatalf("loading run configuration: %v", err)
		}
		cfg = loaded
	}

	altitudes, err := parseAltitudes(*targetAlts)
	if err != nil {
		log.Fatalf("parsing -target-altitudes-m: %v", err)
	}

	ctx, stop := worker.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, altitudes); err != nil {
		log.Fatalf("viewshed run failed: %v", err)
	}
}

func parseAltitudes(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid altitude %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// pipeline bundles the shared collaborators every sensor's computation
// needs, assembled once per run.
type pipeline struct {
	fs            fsutil.FileSystem
	cfg           *config.RunConfig
	demProvider   *dem.FileProvider
	viewshedCache *cache.ViewshedCache
	outputCache   *cache.OutputStateCache
	maxWorkers    int
	sensorsByID   map[string]sensor.Sensor
}

func run(ctx context.Context, cfg *config.RunConfig, altitudes []float64) error {
	fs := fsutil.OSFileSystem{}
	clock := timeutil.RealClock{}

	demProvider, err := dem.LoadFileProvider(*demPathFlag)
	if err != nil {
		return fmt.Errorf("loading dem: %w", err)
	}

	sensorsF, err := os.Open(*sensorsFile)
	if err != nil {
		return fmt.Errorf("opening sensors file: %w", err)
	}
	defer sensorsF.Close()

	records, err := sensorsource.LoadCSV(sensorsF)
	if err != nil {
		return fmt.Errorf("loading sensors: %w", err)
	}
	sensors, err := sensorsource.ToSensors(records)
	if err != nil {
		return fmt.Errorf("converting sensors: %w", err)
	}

	if err := fs.MkdirAll(cfg.GetCacheDir(), 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if err := fs.MkdirAll(*outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	viewshedCache := cache.NewViewshedCache(fs, clock, filepath.Join(cfg.GetCacheDir(), "viewsheds"))
	if err := viewshedCache.CleanupTemps(); err != nil {
		log.Printf("warning: cleaning up stale temp files: %v", err)
	}
	defer func() {
		if err := viewshedCache.CleanupTemps(); err != nil {
			log.Printf("warning: cleaning up temp files at shutdown: %v", err)
		}
	}()

	fpIndex, err := cache.OpenFingerprintIndex(filepath.Join(cfg.GetCacheDir(), "fingerprints.db"))
	if err != nil {
		log.Printf("warning: opening fingerprint index: %v (Tier-2 skip cache disabled)", err)
		fpIndex = nil
	} else {
		defer fpIndex.Close()
	}

	sensorsByID := make(map[string]sensor.Sensor, len(sensors))
	for _, s := range sensors {
		sensorsByID[s.ID] = s
	}

	p := &pipeline{
		fs:            fs,
		cfg:           cfg,
		demProvider:   demProvider,
		viewshedCache: viewshedCache,
		outputCache:   cache.NewOutputStateCache(fpIndex),
		maxWorkers:    cfg.GetMaxWorkers(runtime.NumCPU()),
		sensorsByID:   sensorsByID,
	}

	sensorPolysByAltitude := make(map[float64][]unionbuilder.SensorPolygons)
	var sensorPolysMu sync.Mutex

	// Sensors are independent of one another, unlike the zones within
	// one sensor's own computeSensor call, so they're dispatched onto
	// the bounded worker pool rather than a plain loop.
	units := make([]worker.Unit, len(sensors))
	for i, s := range sensors {
		s := s
		units[i] = worker.Unit{
			SensorID:  s.ID,
			ZoneIndex: -1,
			Run: func(ctx context.Context) error {
				results, err := p.computeSensor(ctx, s)
				if err != nil {
					return fmt.Errorf("computing sensor: %w", err)
				}

				proj, err := geo.NewAEQDProjector(s.LatitudeDeg, s.LongitudeDeg)
				if err != nil {
					return fmt.Errorf("building projector: %w", err)
				}

				extractor := mask.MaskExtractor{
					SimplifyToleranceM: cfg.GetSimplifyToleranceM(),
					MinAreaM2:          cfg.GetPixelSizeM() * cfg.GetPixelSizeM(),
				}
				maxRangeM := cfg.GetMaxRangeKm() * 1000

				for _, altitudeM := range altitudes {
					polys := extractor.Extract(results, altitudeM, maxRangeM)
					wgs84 := mask.ReprojectMultiToWGS84(polys, proj)

					if cfg.GetUnionOutputs() {
						sensorPolysMu.Lock()
						sensorPolysByAltitude[altitudeM] = append(sensorPolysByAltitude[altitudeM], unionbuilder.SensorPolygons{
							SensorID: s.ID,
							Polygons: wgs84,
						})
						sensorPolysMu.Unlock()
						continue
					}

					if err := p.writeOutput(s.ID, altitudeM, maxRangeM, wgs84, []string{s.ID}); err != nil {
						log.Printf("sensor %s altitude %v: writing output: %v", s.ID, altitudeM, err)
					}
				}

				if cfg.GetDebugHeatmaps() {
					p.renderDebugHeatmaps(s, results)
				}
				return nil
			},
		}
	}

	for _, r := range worker.Pool(ctx, units, p.maxWorkers) {
		if r.Err != nil {
			log.Printf("sensor %s: %v", r.Unit.SensorID, r.Err)
		}
	}

	if cfg.GetUnionOutputs() {
		builder := unionbuilder.UnionBuilder{
			PixelSizeDeg: metresToDegrees(cfg.GetPixelSizeM()),
			MinAreaDeg2:  metresToDegrees(cfg.GetPixelSizeM()) * metresToDegrees(cfg.GetPixelSizeM()),
		}
		maxRangeM := cfg.GetMaxRangeKm() * 1000
		for altitudeM, sets := range sensorPolysByAltitude {
			result := builder.Build(sets)
			if err := p.writeOutput("union", altitudeM, maxRangeM, result.Polygons, result.ContributingIDs); err != nil {
				log.Printf("union altitude %v: writing output: %v", altitudeM, err)
			}
		}
	}

	return nil
}

func metresToDegrees(m float64) float64 {
	return m / geo.WGS84SemiMajorAxisM * 180 / math.Pi
}

func (p *pipeline) computeSensor(ctx context.Context, s sensor.Sensor) ([]mask.ZoneResult, error) {
	maxRangeM := p.cfg.GetMaxRangeKm() * 1000

	multiscale := zone.MultiscaleParams{
		Enable:   p.cfg.GetMultiscaleEnable(),
		NearM:    p.cfg.GetMultiscaleNearM(),
		MidM:     p.cfg.GetMultiscaleMidM(),
		FarM:     p.cfg.GetMultiscaleFarM(),
		ResNearM: p.cfg.GetMultiscaleResNearM(),
		ResMidM:  p.cfg.GetMultiscaleResMidM(),
		ResFarM:  p.cfg.GetMultiscaleResFarM(),
	}
	zones, err := zone.BuildZones(maxRangeM, multiscale)
	if err != nil {
		return nil, fmt.Errorf("building zones: %w", err)
	}

	proj, err := geo.NewAEQDProjector(s.LatitudeDeg, s.LongitudeDeg)
	if err != nil {
		return nil, fmt.Errorf("building projector: %w", err)
	}

	effRadius, err := geo.EffectiveRadius(s.RefractionK, s.LatitudeDeg)
	if err != nil {
		return nil, fmt.Errorf("computing effective radius: %w", err)
	}
	sensorHeightMsl := s.EffectiveHeightMslM()

	// Zones are processed near to far, in the order BuildZones returns
	// them, because each zone's sweep must continue the running maximum
	// elevation angle accumulated by the inner zone(s): a ridge in the
	// near zone still casts a shadow across a mid/far zone boundary.
	// That dependency makes the zones of one sensor strictly sequential;
	// only the per-azimuth sweep within a zone is parallelised, via
	// mva.Input.MaxWorkers.
	results := make([]mask.ZoneResult, len(zones))
	var runningBoundary []float32

	for i, z := range zones {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fp := sensor.Fingerprint(s, z, string(p.cfg.GetEarthModel()))

		if entry, ok, err := p.viewshedCache.Lookup(fp, z.Index); err == nil && ok {
			results[i] = mask.ZoneResult{ZoneIndex: z.Index, Mva: entry.Mva, PixelSizeM: z.PixelSizeM}
			runningBoundary = entry.BoundaryHorizon
			continue
		}

		bbox := zoneBoundingBox(s, z)
		wgs84Dem, err := p.demProvider.Fetch(ctx, bbox)
		if err != nil {
			return nil, fmt.Errorf("fetching dem for zone %d: %w", z.Index, err)
		}

		width := int(2*z.RMaxM/z.PixelSizeM) + 1
		aeqdDem := raster.NewAeqdRaster(-z.RMaxM, -z.RMaxM, z.PixelSizeM, width, width, wgs84Dem.NoData)
		proj.ReprojectBilinear(wgs84Dem, aeqdDem)

		var startingBoundary []float64
		if runningBoundary != nil {
			nAz := mva.NumAzimuths(z.RMaxM, z.PixelSizeM)
			denormalized := raster.DenormalizeBoundaryHorizon(runningBoundary, nAz)
			startingBoundary = make([]float64, len(denormalized))
			for j, v := range denormalized {
				startingBoundary[j] = float64(v)
			}
		}

		input := mva.Input{
			SensorHeightMslM: sensorHeightMsl,
			EffectiveRadiusM: effRadius,
			Dem:              aeqdDem,
			RMinM:            z.RMinM,
			RMaxM:            z.RMaxM,
			PixelSizeM:       z.PixelSizeM,
			StartingBoundary: startingBoundary,
			MaxWorkers:       p.maxWorkers,
		}
		out, err := input.RunContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("running sweep for zone %d: %w", z.Index, err)
		}

		finalBoundary32 := make([]float32, len(out.FinalBoundary))
		for j, v := range out.FinalBoundary {
			finalBoundary32[j] = float32(v)
		}
		normalized := raster.NormalizeBoundaryHorizon(finalBoundary32, out.NumAzimuths)

		if err := p.viewshedCache.Store(fp, z.Index, cache.Entry{
			Mva:             out.Mva,
			OuterRadiusM:    z.RMaxM,
			BoundaryHorizon: normalized,
		}); err != nil {
			log.Printf("caching zone %d for sensor %s: %v", z.Index, s.ID, err)
		}

		results[i] = mask.ZoneResult{ZoneIndex: z.Index, Mva: out.Mva, PixelSizeM: z.PixelSizeM}
		runningBoundary = normalized
	}

	return results, nil
}

func zoneBoundingBox(s sensor.Sensor, z zone.Zone) dem.BoundingBox {
	pad := metresToDegrees(z.RMaxM) * 1.01
	return dem.BoundingBox{
		MinLatDeg: s.LatitudeDeg - pad,
		MaxLatDeg: s.LatitudeDeg + pad,
		MinLonDeg: s.LongitudeDeg - pad,
		MaxLonDeg: s.LongitudeDeg + pad,
	}
}

func (p *pipeline) renderDebugHeatmaps(s sensor.Sensor, results []mask.ZoneResult) {
	for _, r := range results {
		path := filepath.Join(*outDir, fmt.Sprintf("debug-%s-zone%d.png", s.ID, r.ZoneIndex))
		title := fmt.Sprintf("%s zone %d MVA", s.ID, r.ZoneIndex)
		if err := diag.RenderHeatmap(r.Mva, title, path); err != nil {
			log.Printf("sensor %s zone %d: rendering debug heatmap: %v", s.ID, r.ZoneIndex, err)
		}
	}
}

func (p *pipeline) writeOutput(idPrefix string, altitudeM, maxRangeM float64, polys orb.MultiPolygon, sensorIDs []string) error {
	styleFp := fmt.Sprintf("%s|%s|%v|%v", p.cfg.GetStyleLineColor(), p.cfg.GetStyleFillColor(), p.cfg.GetStyleLineWidth(), p.cfg.GetStyleFillOpacity())

	fps := make([]string, len(sensorIDs))
	for i, id := range sensorIDs {
		if s, ok := p.sensorsByID[id]; ok {
			fps[i] = sensor.PhysicalFingerprint(s, string(p.cfg.GetEarthModel()))
		} else {
			fps[i] = id
		}
	}
	sensorFp := strings.Join(fps, ",")
	outFp := cache.OutputFingerprint(sensorFp, altitudeM, maxRangeM, styleFp)

	path := filepath.Join(*outDir, fmt.Sprintf("%s-alt%.1f.geojson", idPrefix, altitudeM))

	shouldWrite, err := p.outputCache.ShouldWrite(outFp, path)
	if err != nil {
		return fmt.Errorf("checking output cache: %w", err)
	}
	if !shouldWrite {
		return nil
	}

	meta := outputsink.Metadata{
		OutputFingerprint: outFp,
		TargetAltitudeM:   altitudeM,
		MaxRangeM:         maxRangeM,
		SensorIDs:         sensorIDs,
		Extra: map[string]string{
			"sensor_fingerprint": sensorFp,
			"style":              styleFp,
		},
	}
	if err := outputsink.Write(p.fs, path, polys, meta); err != nil {
		return fmt.Errorf("writing geojson: %w", err)
	}

	if err := p.outputCache.RecordWrite(outFp, path, timeutil.RealClock{}.Now().UnixNano()); err != nil {
		log.Printf("recording output cache entry for %s: %v", path, err)
	}

	return nil
}
