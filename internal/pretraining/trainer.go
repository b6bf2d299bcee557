// Package pretraining runs contrastive encoder pretraining (SimCLR and
// X-CLR) over a scanned dataset tree, checkpointing into a timestamped run
// directory every epoch.
package pretraining

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"training-workspace-service/internal/dataset"
	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/encoder"
	"training-workspace-service/internal/imaging"
)

const (
	// LossesFile is the per-epoch loss log written when a run completes.
	LossesFile = "losses.csv"

	// RunDirLayout names run directories after their start time.
	RunDirLayout = "Jan02-15:04:05"

	// cosineDelay is the number of epochs trained at the base learning rate
	// before cosine annealing kicks in.
	cosineDelay = 15
)

// Config controls one pretraining run. Zero fields fall back to defaults.
type Config struct {
	Algorithm   domain.Algorithm
	BatchSize   int
	Epochs      int
	OutFeatures int
	Tau         float64
	TauS        float64
	LabelRange  int
	LR          float64
	WeightDecay float64
	Seed        int64

	// EncoderLoadPath warm-starts training from an existing checkpoint. A
	// missing checkpoint is logged and falls back to fresh weights; a
	// corrupt one fails construction.
	EncoderLoadPath string
}

func (c *Config) applyDefaults() {
	if c.Epochs <= 0 {
		c.Epochs = 100
	}
	if c.OutFeatures <= 0 {
		c.OutFeatures = 128
	}
	if c.Tau <= 0 {
		c.Tau = 0.1
	}
	if c.TauS <= 0 {
		c.TauS = 0.1
	}
	if c.LabelRange <= 0 {
		c.LabelRange = 50
	}
	if c.LR <= 0 {
		c.LR = 3e-4
	}
	if c.WeightDecay <= 0 {
		c.WeightDecay = 1e-4
	}
}

// Progress reports per-epoch training state to the caller.
type Progress struct {
	Epoch  int
	Epochs int
	Loss   float64
}

// ProgressFunc receives a Progress after every completed epoch.
type ProgressFunc func(Progress)

// Result summarizes a completed run.
type Result struct {
	RunDir    string
	Epochs    int
	FinalLoss float64
	Losses    []float64
}

// Trainer owns the encoder, optimizer and augmentation state for one run.
type Trainer struct {
	cfg Config
	enc *encoder.Encoder
	opt *AdamW
	aug *imaging.Augmenter
	rng *rand.Rand
}

// New validates cfg and builds a trainer. The encoder starts from fresh
// seeded weights unless EncoderLoadPath names a usable checkpoint.
func New(cfg Config) (*Trainer, error) {
	if !domain.ValidAlgorithm(cfg.Algorithm) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidAlgorithm, cfg.Algorithm)
	}
	if cfg.BatchSize < 2 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidBatchSize, cfg.BatchSize)
	}
	cfg.applyDefaults()

	enc, err := initEncoder(&cfg)
	if err != nil {
		return nil, err
	}
	enc.Algorithm = string(cfg.Algorithm)
	return &Trainer{
		cfg: cfg,
		enc: enc,
		opt: NewAdamW(enc, cfg.LR, cfg.WeightDecay),
		aug: imaging.NewAugmenter(cfg.Seed + 1),
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

func initEncoder(cfg *Config) (*encoder.Encoder, error) {
	if cfg.EncoderLoadPath == "" {
		return encoder.New(imaging.FeatureDim, cfg.OutFeatures, cfg.Seed), nil
	}

	enc, err := encoder.Load(cfg.EncoderLoadPath)
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		log.WithField("path", cfg.EncoderLoadPath).Warn("encoder checkpoint not found, starting from fresh weights")
		return encoder.New(imaging.FeatureDim, cfg.OutFeatures, cfg.Seed), nil
	}
	if err != nil {
		return nil, err
	}
	if enc.InFeatures != imaging.FeatureDim {
		return nil, fmt.Errorf("%w: checkpoint expects %d input features, images provide %d",
			domain.ErrEmbeddingDimMismatch, enc.InFeatures, imaging.FeatureDim)
	}
	// The checkpoint's shape wins so optimizer state lines up.
	cfg.OutFeatures = enc.OutFeatures
	enc.Epoch = 0
	return enc, nil
}

// Encoder exposes the trained encoder.
func (t *Trainer) Encoder() *encoder.Encoder { return t.enc }

type loadedSample struct {
	x     []float32
	label int
}

// Run trains over tree, writing encoder and optimizer checkpoints into
// runDir after every epoch and losses.csv at the end. runDir is usually built
// with MakeRunDir. Cancelling ctx stops training between batches; the
// checkpoints written so far stay on disk.
func (t *Trainer) Run(ctx context.Context, tree *dataset.Tree, runDir string, onProgress ProgressFunc) (*Result, error) {
	if len(tree.Samples) < 2 {
		return nil, fmt.Errorf("%w: %d samples in %s", domain.ErrDatasetTooSmall, len(tree.Samples), tree.Root)
	}
	if t.cfg.Algorithm == domain.AlgorithmXCLR {
		for _, s := range tree.Samples {
			if s.Label < 0 || s.Label >= t.cfg.LabelRange {
				return nil, fmt.Errorf("%w: label %d outside [0,%d)", domain.ErrLabelOutOfRange, s.Label, t.cfg.LabelRange)
			}
		}
	}

	samples, err := loadSamples(tree)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	logger := log.WithFields(log.Fields{
		"algorithm": t.cfg.Algorithm,
		"run_dir":   runDir,
		"samples":   len(samples),
	})
	logger.Info("starting pretraining")

	losses := make([]float64, 0, t.cfg.Epochs)
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		started := time.Now()
		loss, err := t.trainEpoch(ctx, samples, t.lrFor(epoch))
		if err != nil {
			return nil, err
		}
		losses = append(losses, loss)

		t.enc.Epoch = epoch + 1
		if err := t.enc.Save(runDir); err != nil {
			return nil, err
		}
		if err := t.opt.Save(runDir); err != nil {
			return nil, err
		}

		logger.WithFields(log.Fields{
			"epoch":   epoch + 1,
			"loss":    loss,
			"elapsed": time.Since(started).Round(time.Millisecond).String(),
		}).Info("epoch complete")
		if onProgress != nil {
			onProgress(Progress{Epoch: epoch + 1, Epochs: t.cfg.Epochs, Loss: loss})
		}
	}

	if err := WriteLosses(filepath.Join(runDir, LossesFile), losses); err != nil {
		return nil, err
	}

	return &Result{
		RunDir:    runDir,
		Epochs:    t.cfg.Epochs,
		FinalLoss: losses[len(losses)-1],
		Losses:    losses,
	}, nil
}

func (t *Trainer) trainEpoch(ctx context.Context, samples []loadedSample, lr float64) (float64, error) {
	perm := t.rng.Perm(len(samples))

	var sum float64
	var batches int
	for start := 0; start < len(perm); start += t.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		end := start + t.cfg.BatchSize
		if end > len(perm) {
			end = len(perm)
		}
		if end-start < 2 {
			break
		}

		sum += t.trainBatch(samples, perm[start:end], lr)
		batches++
	}
	if batches == 0 {
		return 0, fmt.Errorf("%w: batch size %d exceeds usable samples", domain.ErrDatasetTooSmall, t.cfg.BatchSize)
	}
	return sum / float64(batches), nil
}

func (t *Trainer) trainBatch(samples []loadedSample, idx []int, lr float64) float64 {
	b := len(idx)
	xs := make([][]float32, 2*b)
	labels := make([]int, 2*b)
	for i, si := range idx {
		s := samples[si]
		xs[i] = t.aug.Apply(s.x)
		xs[i+b] = t.aug.Apply(s.x)
		labels[i] = s.label
		labels[i+b] = s.label
	}

	ys := t.enc.ForwardBatch(xs)
	zs, norms := normalizeRows(ys)

	var loss float64
	var gz [][]float32
	switch t.cfg.Algorithm {
	case domain.AlgorithmXCLR:
		loss, gz = XCLR(zs, labels, t.cfg.Tau, t.cfg.TauS)
	default:
		loss, gz = NTXent(zs, t.cfg.Tau)
	}
	gys := rawGrad(gz, zs, norms)

	gw := make([][]float32, t.enc.OutFeatures)
	for o := range gw {
		gw[o] = make([]float32, t.enc.InFeatures)
	}
	gb := make([]float32, t.enc.OutFeatures)
	for r, gy := range gys {
		x := xs[r]
		for o, g := range gy {
			if g == 0 {
				continue
			}
			gb[o] += g
			row := gw[o]
			for d, xv := range x {
				row[d] += g * xv
			}
		}
	}

	t.opt.Update(t.enc, gw, gb, lr)
	return loss
}

// lrFor holds the base learning rate for the first cosineDelay epochs, then
// anneals it along a cosine towards zero over the remaining epochs.
func (t *Trainer) lrFor(epoch int) float64 {
	if epoch < cosineDelay || t.cfg.Epochs <= cosineDelay {
		return t.cfg.LR
	}
	frac := float64(epoch-cosineDelay) / float64(t.cfg.Epochs-cosineDelay)
	return t.cfg.LR * 0.5 * (1 + math.Cos(math.Pi*frac))
}

func loadSamples(tree *dataset.Tree) ([]loadedSample, error) {
	out := make([]loadedSample, len(tree.Samples))
	for i, s := range tree.Samples {
		x, err := imaging.LoadTensor(s.Path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", s.Path, err)
		}
		out[i] = loadedSample{x: x, label: s.Label}
	}
	return out, nil
}

// MakeRunDir creates a unique timestamped directory under baseDir.
func MakeRunDir(baseDir string) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("create run base dir: %w", err)
	}
	stamp := time.Now().Format(RunDirLayout)
	dir := filepath.Join(baseDir, stamp)
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("create run dir: %w", err)
		}
		dir = filepath.Join(baseDir, fmt.Sprintf("%s-%d", stamp, i))
	}
}

// WriteLosses writes one loss per epoch as a single-column CSV.
func WriteLosses(path string, losses []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Loss"}); err != nil {
		return err
	}
	for _, l := range losses {
		if err := w.Write([]string{strconv.FormatFloat(l, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// ReadLosses parses a losses.csv written by WriteLosses.
func ReadLosses(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	var out []float64
	for i, row := range rows {
		if i == 0 || len(row) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}
