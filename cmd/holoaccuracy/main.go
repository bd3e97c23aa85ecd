package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/Omnistic/holographic-stimulation-accuracy/internal/models"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/accuracy"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/blob"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/config"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/registration"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/visualization"
	"github.com/Omnistic/holographic-stimulation-accuracy/pkg/volume"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "holoaccuracy.yaml", "Workflow configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file and exit")
	remap := flag.Bool("remap", false, "Redo the mapping fit even if the config holds one")
	skipAnalysis := flag.Bool("skip-analysis", false, "Stop after mapping, without the 3D accuracy pass")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write default config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("HOLOGRAPHIC STIMULATION TARGETING ACCURACY")
	fmt.Println("Blob localization and point-set registration pipeline")
	fmt.Println("================================")

	if *remap {
		cfg.Mapping.Mapped = false
	}

	// Step 1: Mapping — fit the similarity transform between the two frames.
	var transform registration.Similarity
	if cfg.Mapping.Mapped {
		fmt.Println("Mapping data available. Skipping mapping.")
		transform = transformFromConfig(cfg)
	} else {
		fmt.Println("Mapping data not available. Mapping now...")
		transform, err = runMapping(cfg)
		if err != nil {
			log.Fatalf("Mapping failed: %v", err)
		}
		transformToConfig(cfg, transform)
		cfg.Mapping.Mapped = true
		if err := config.SaveConfig(cfg, *configPath); err != nil {
			log.Fatalf("Failed to persist mapping: %v", err)
		}
		fmt.Printf("Mapping saved to %s (scale %.4f, angle %.4f rad)\n",
			*configPath, transform.Scale, transform.Angle)
	}

	if *skipAnalysis {
		return
	}

	// Step 2: Analysis — project targets into the stack and measure accuracy.
	report, err := runAnalysis(cfg, transform)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	fmt.Println()
	fmt.Println(report)
}

// runMapping locates the targets in both reference images, matches them to
// the user-selected points, and fits the frame A -> frame B similarity.
func runMapping(cfg *config.Config) (registration.Similarity, error) {
	referenceA := toPointSet(cfg.Mapping.ReferenceA)
	referenceB := toPointSet(cfg.Mapping.ReferenceB)
	if len(referenceA) == 0 || len(referenceA) != len(referenceB) {
		return registration.Similarity{}, fmt.Errorf(
			"config must provide equal, non-empty reference point sets (got %d and %d)",
			len(referenceA), len(referenceB))
	}

	mode, err := blob.ParseMode(cfg.Detection.MapMode)
	if err != nil {
		return registration.Similarity{}, err
	}
	detector := blob.Detector{
		Mode:         mode,
		Radius:       cfg.Detection.OpeningRadius,
		MedianRadius: cfg.Detection.MedianRadius,
	}
	if mode == blob.ModeDilation {
		detector.Radius = cfg.Detection.DilationRadius
	}

	matchedA, err := detectAndMatch(cfg.Mapping.ImageA, detector, cfg.Detection.BlobCount, referenceA, cfg)
	if err != nil {
		return registration.Similarity{}, fmt.Errorf("frame A: %w", err)
	}
	matchedB, err := detectAndMatch(cfg.Mapping.ImageB, detector, cfg.Detection.BlobCount, referenceB, cfg)
	if err != nil {
		return registration.Similarity{}, fmt.Errorf("frame B: %w", err)
	}

	fmt.Println("Fitting similarity transform...")
	return registration.Fit(matchedA, matchedB)
}

// detectAndMatch loads one reference image, locates blobs in it, and orders
// them by the user-selected reference points.
func detectAndMatch(path string, detector blob.Detector, count int, reference models.PointSet, cfg *config.Config) (models.PointSet, error) {
	vol, err := volume.LoadImage(path)
	if err != nil {
		return nil, err
	}

	centroids, axisLength, err := detector.Detect(vol, count)
	if err != nil {
		// A shortfall leaves nothing to pair the missing references with,
		// so mapping cannot proceed on a short list.
		return nil, err
	}
	if cfg.Output.Verbose {
		fmt.Printf("Located %d blobs in %s (mean axis length %.1f px)\n",
			len(centroids), filepath.Base(path), axisLength)
	}

	matched, err := registration.Match(reference, centroids)
	if err != nil {
		return nil, err
	}

	if cfg.Output.PlotDir != "" {
		if err := os.MkdirAll(cfg.Output.PlotDir, 0755); err != nil {
			return nil, err
		}
		overlay := filepath.Join(cfg.Output.PlotDir, filepath.Base(path)+"_blobs.png")
		if err := visualization.NewViewer(vol).SaveOverlay(matched, overlay); err != nil {
			fmt.Printf("Warning: Failed to save blob overlay: %v\n", err)
		}
	}
	return matched, nil
}

// runAnalysis projects the frame A references into the stack frame, detects
// the actual stimulation responses in the 3D stack, and reports per-axis
// accuracy.
func runAnalysis(cfg *config.Config, transform registration.Similarity) (accuracy.Report, error) {
	fmt.Println("Loading stack...")
	stack, err := volume.LoadStack(cfg.Analysis.StackDir)
	if err != nil {
		return accuracy.Report{}, err
	}
	fmt.Printf("Loaded stack %dx%dx%d\n", stack.Width, stack.Height, stack.Depth)

	referenceA := toPointSet(cfg.Mapping.ReferenceA)
	projected2D, err := transform.Apply(referenceA)
	if err != nil {
		return accuracy.Report{}, err
	}
	projected, err := registration.AugmentZ(projected2D, cfg.Analysis.ZSpacing, stack.Depth)
	if err != nil {
		return accuracy.Report{}, err
	}

	mode, err := blob.ParseMode(cfg.Detection.StackMode)
	if err != nil {
		return accuracy.Report{}, err
	}
	detector := blob.Detector{
		Mode:         mode,
		Radius:       cfg.Detection.DilationRadius,
		MedianRadius: cfg.Detection.MedianRadius,
	}
	if mode == blob.ModeOpening {
		detector.Radius = cfg.Detection.OpeningRadius
	}

	fmt.Println("Locating stimulation responses in the stack...")
	detected, axisLength, err := detector.Detect(stack, len(projected))
	if err != nil {
		return accuracy.Report{}, err
	}
	if cfg.Output.Verbose {
		fmt.Printf("Located %d responses (mean axis length %.1f vx)\n", len(detected), axisLength)
	}

	// Re-order the detections by the projected targets so index i compares
	// like with like.
	ordered, err := registration.Match(projected, detected)
	if err != nil {
		return accuracy.Report{}, err
	}

	voxelSize, err := voxelSizeFromConfig(cfg)
	if err != nil {
		return accuracy.Report{}, err
	}
	report, err := accuracy.Evaluate(projected, ordered, voxelSize)
	if err != nil {
		return accuracy.Report{}, err
	}

	if cfg.Output.PlotDir != "" {
		if err := os.MkdirAll(cfg.Output.PlotDir, 0755); err != nil {
			return accuracy.Report{}, err
		}
		plotPath := filepath.Join(cfg.Output.PlotDir, "per_axis_errors.png")
		if err := accuracy.PlotErrors(projected, ordered, voxelSize, plotPath); err != nil {
			fmt.Printf("Warning: Failed to save accuracy plot: %v\n", err)
		} else {
			fmt.Printf("Accuracy plot saved to %s\n", plotPath)
		}

		overlay := filepath.Join(cfg.Output.PlotDir, "stack_targets.png")
		if err := visualization.NewViewer(stack).SaveOverlay(projected, overlay); err != nil {
			fmt.Printf("Warning: Failed to save stack overlay: %v\n", err)
		}
	}
	return report, nil
}

func toPointSet(raw [][]float64) models.PointSet {
	out := make(models.PointSet, len(raw))
	for i, coords := range raw {
		out[i] = models.Point(coords).Clone()
	}
	return out
}

func transformFromConfig(cfg *config.Config) registration.Similarity {
	t := cfg.Mapping.Transform
	return registration.Similarity{
		CenterA: models.Point(t.CenterA).Clone(),
		CenterB: models.Point(t.CenterB).Clone(),
		Scale:   t.Scale,
		Angle:   t.Angle,
	}
}

func transformToConfig(cfg *config.Config, t registration.Similarity) {
	cfg.Mapping.Transform.CenterA = t.CenterA
	cfg.Mapping.Transform.CenterB = t.CenterB
	cfg.Mapping.Transform.Scale = t.Scale
	cfg.Mapping.Transform.Angle = t.Angle
}

func voxelSizeFromConfig(cfg *config.Config) ([3]float64, error) {
	var size [3]float64
	if len(cfg.Analysis.VoxelSize) != 3 {
		return size, errors.New("analysis.voxelSize must have exactly 3 entries (z, y, x)")
	}
	copy(size[:], cfg.Analysis.VoxelSize)
	return size, nil
}
