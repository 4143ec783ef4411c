package provider

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// hugotBatchMax caps how many texts go through one pipeline run.
const hugotBatchMax = 10

// ortSingleton holds the process-wide ONNX Runtime session and pipeline.
// ORT only allows one active session per process, so all HugotEmbedder
// instances must share it. The mutex serializes both initialization and
// inference (ORT is not thread-safe).
var ortSingleton struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
	mu       sync.Mutex
	ready    bool
}

// HugotEmbedder generates embeddings locally with an ONNX sentence
// embedding model, so search works without any API key.
//
// The model can come from two sources (checked in order):
//  1. Model files on disk — a subdirectory of cacheDir containing
//     tokenizer.json.
//  2. Statically embedded in the binary (build tag embed_model),
//     extracted to cacheDir on first use.
type HugotEmbedder struct {
	cacheDir string
}

// NewHugotEmbedder creates a HugotEmbedder that looks for model files in
// cacheDir.
func NewHugotEmbedder(cacheDir string) *HugotEmbedder {
	return &HugotEmbedder{cacheDir: cacheDir}
}

// Available reports whether a usable model exists, either compiled into
// the binary or present on disk in cacheDir.
func (h *HugotEmbedder) Available() bool {
	if hasEmbeddedModel {
		return true
	}
	_, err := h.diskModelPath()
	return err == nil
}

// Embed generates one embedding per text. Texts are pushed through the
// pipeline in chunks; the singleton mutex is held per chunk so long index
// runs do not starve query embedding.
func (h *HugotEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	if err := h.initialize(); err != nil {
		return nil, fmt.Errorf("initialize hugot: %w", err)
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += hugotBatchMax {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + hugotBatchMax
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := runPipeline(texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func runPipeline(texts []string) ([][]float64, error) {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	result, err := ortSingleton.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, fmt.Errorf("run embedding pipeline: %w", err)
	}

	vectors := make([][]float64, len(result.Embeddings))
	for i, vec32 := range result.Embeddings {
		vec64 := make([]float64, len(vec32))
		for j, v := range vec32 {
			vec64[j] = float64(v)
		}
		vectors[i] = vec64
	}
	return vectors, nil
}

func (h *HugotEmbedder) initialize() error {
	ortSingleton.mu.Lock()
	defer ortSingleton.mu.Unlock()

	if ortSingleton.ready {
		return nil
	}

	session, err := newHugotSession()
	if err != nil {
		return fmt.Errorf("create hugot session: %w", err)
	}

	modelPath, err := h.resolveModelPath()
	if err != nil {
		_ = session.Destroy()
		return err
	}

	config := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "local-embeddings",
		Options: []hugot.FeatureExtractionOption{
			pipelines.WithNormalization(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return fmt.Errorf("create feature extraction pipeline: %w", err)
	}

	ortSingleton.session = session
	ortSingleton.pipeline = pipeline
	ortSingleton.ready = true
	return nil
}

// resolveModelPath returns the path to a usable model directory,
// preferring files already on disk over the embedded copy.
func (h *HugotEmbedder) resolveModelPath() (string, error) {
	if diskPath, err := h.diskModelPath(); err == nil {
		return diskPath, nil
	}

	if !hasEmbeddedModel {
		return "", fmt.Errorf("no model found in %s and no embedded model compiled in (build with -tags embed_model)", h.cacheDir)
	}

	if err := os.MkdirAll(h.cacheDir, 0o755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	return extractEmbeddedModel(embeddedModelFS, h.cacheDir)
}

// diskModelPath looks for a model subdirectory containing tokenizer.json
// inside cacheDir.
func (h *HugotEmbedder) diskModelPath() (string, error) {
	entries, err := os.ReadDir(h.cacheDir)
	if err != nil {
		return "", fmt.Errorf("read model directory %s: %w", h.cacheDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(h.cacheDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, "tokenizer.json")); statErr == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no model subdirectory with tokenizer.json found in %s", h.cacheDir)
}

// extractEmbeddedModel writes the statically embedded model files to
// targetDir and returns the path to the model subdirectory.
func extractEmbeddedModel(embedded fs.FS, targetDir string) (string, error) {
	modelsFS, err := fs.Sub(embedded, "models")
	if err != nil {
		return "", fmt.Errorf("access embedded models: %w", err)
	}

	entries, err := fs.ReadDir(modelsFS, ".")
	if err != nil {
		return "", fmt.Errorf("read embedded models: %w", err)
	}

	var modelSubdir string
	for _, entry := range entries {
		if entry.IsDir() {
			modelSubdir = entry.Name()
			break
		}
	}
	if modelSubdir == "" {
		return "", fmt.Errorf("no model directory found in embedded models")
	}

	modelPath := filepath.Join(targetDir, modelSubdir)

	// Already extracted by an earlier run.
	if _, statErr := os.Stat(filepath.Join(modelPath, "tokenizer.json")); statErr == nil {
		return modelPath, nil
	}

	modelFS, err := fs.Sub(modelsFS, modelSubdir)
	if err != nil {
		return "", fmt.Errorf("access model subdirectory: %w", err)
	}

	err = fs.WalkDir(modelFS, ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		target := filepath.Join(modelPath, path)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, readErr := fs.ReadFile(modelFS, path)
		if readErr != nil {
			return fmt.Errorf("read embedded file %s: %w", path, readErr)
		}
		if mkdirErr := os.MkdirAll(filepath.Dir(target), 0o755); mkdirErr != nil {
			return fmt.Errorf("create directory for %s: %w", path, mkdirErr)
		}
		return os.WriteFile(target, data, 0o644)
	})
	if err != nil {
		return "", fmt.Errorf("extract embedded model: %w", err)
	}

	return modelPath, nil
}
