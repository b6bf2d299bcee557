package pretraining

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"training-workspace-service/internal/domain"
	"training-workspace-service/internal/encoder"
)

// OptimizerFile is the optimizer state file written next to the encoder
// checkpoint inside a run directory.
const OptimizerFile = "optimiser.json.gz"

// AdamW holds decoupled-weight-decay Adam state for a linear encoder.
type AdamW struct {
	LR          float64 `json:"lr"`
	Beta1       float64 `json:"beta1"`
	Beta2       float64 `json:"beta2"`
	Eps         float64 `json:"eps"`
	WeightDecay float64 `json:"weight_decay"`
	Step        int     `json:"step"`

	MW [][]float32 `json:"m_weights"`
	VW [][]float32 `json:"v_weights"`
	MB []float32   `json:"m_bias"`
	VB []float32   `json:"v_bias"`
}

// NewAdamW allocates zeroed moment buffers shaped after enc.
func NewAdamW(enc *encoder.Encoder, lr, weightDecay float64) *AdamW {
	mw := make([][]float32, enc.OutFeatures)
	vw := make([][]float32, enc.OutFeatures)
	for i := range mw {
		mw[i] = make([]float32, enc.InFeatures)
		vw[i] = make([]float32, enc.InFeatures)
	}
	return &AdamW{
		LR:          lr,
		Beta1:       0.9,
		Beta2:       0.999,
		Eps:         1e-8,
		WeightDecay: weightDecay,
		MW:          mw,
		VW:          vw,
		MB:          make([]float32, enc.OutFeatures),
		VB:          make([]float32, enc.OutFeatures),
	}
}

// Update applies one AdamW step to enc using gradients gw, gb at the given
// learning rate. Weight decay is decoupled and skips the bias.
func (o *AdamW) Update(enc *encoder.Encoder, gw [][]float32, gb []float32, lr float64) {
	o.Step++
	bc1 := 1 - math.Pow(o.Beta1, float64(o.Step))
	bc2 := 1 - math.Pow(o.Beta2, float64(o.Step))

	for i := range enc.W {
		for j := range enc.W[i] {
			g := float64(gw[i][j])
			m := o.Beta1*float64(o.MW[i][j]) + (1-o.Beta1)*g
			v := o.Beta2*float64(o.VW[i][j]) + (1-o.Beta2)*g*g
			o.MW[i][j] = float32(m)
			o.VW[i][j] = float32(v)
			step := lr * (m / bc1) / (math.Sqrt(v/bc2) + o.Eps)
			w := float64(enc.W[i][j])
			enc.W[i][j] = float32(w - step - lr*o.WeightDecay*w)
		}
	}
	for i := range enc.B {
		g := float64(gb[i])
		m := o.Beta1*float64(o.MB[i]) + (1-o.Beta1)*g
		v := o.Beta2*float64(o.VB[i]) + (1-o.Beta2)*g*g
		o.MB[i] = float32(m)
		o.VB[i] = float32(v)
		enc.B[i] = float32(float64(enc.B[i]) - lr*(m/bc1)/(math.Sqrt(v/bc2)+o.Eps))
	}
}

// Save writes the optimizer into dir as OptimizerFile.
func (o *AdamW) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	path := filepath.Join(dir, OptimizerFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := json.NewEncoder(zw).Encode(o); err != nil {
		zw.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// LoadOptimizer reads optimizer state from a run directory or file path.
func LoadOptimizer(path string) (*AdamW, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
	}
	if info.IsDir() {
		path = filepath.Join(path, OptimizerFile)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	defer zr.Close()

	var o AdamW
	if err := json.NewDecoder(zr).Decode(&o); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrCheckpointCorrupt, path, err)
	}
	return &o, nil
}
