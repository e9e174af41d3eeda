package decomposition

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/core/model"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
)

// DefaultEigenCutoff は最大固有値に対する相対しきい値のデフォルト値
const DefaultEigenCutoff = 1e-10

var _ model.InverseTransformer = (*PCA)(nil)

// PCA は特異値分解による主成分分析
//
// 行がサンプル、列が特徴量の行列を受け取る。成分は固有値の降順に並ぶ。
type PCA struct {
	model.BaseEstimator

	maxComponents int     // 0 の場合は制限なし
	eigenCutoff   float64 // λ_i <= cutoff·λ_0 の成分は捨てる
	logger        log.Logger

	nFeatures     int
	mean          []float64
	components    []float64 // k×d 行優先
	eigenvalues   []float64
	totalVariance float64
}

// PCAOption は PCA の設定関数
type PCAOption func(*PCA)

// WithMaxComponents は保持する成分数の上限を設定する
func WithMaxComponents(k int) PCAOption {
	return func(p *PCA) { p.maxComponents = k }
}

// WithEigenCutoff は固有値の相対しきい値を設定する
func WithEigenCutoff(cutoff float64) PCAOption {
	return func(p *PCA) { p.eigenCutoff = cutoff }
}

// WithPCALogger はロガーを設定する
func WithPCALogger(logger log.Logger) PCAOption {
	return func(p *PCA) { p.logger = logger }
}

// NewPCA は新しい PCA を作成する
func NewPCA(opts ...PCAOption) *PCA {
	p := &PCA{
		eigenCutoff: DefaultEigenCutoff,
		logger:      log.GetLoggerWithName("decomposition").With(log.ModelNameKey, "PCA"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fit は平均と主成分を学習する
func (p *PCA) Fit(X mat.Matrix) (err error) {
	defer errors.Recover(&err, "PCA.Fit")

	if p.maxComponents < 0 {
		return errors.NewValidationError("max_components", "must not be negative", p.maxComponents)
	}
	if p.eigenCutoff < 0 {
		return errors.NewValidationError("eigen_cutoff", "must not be negative", p.eigenCutoff)
	}
	n, d := X.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("PCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("PCA.Fit", X, 0); err != nil {
		return err
	}
	p.Reset()

	mean := make([]float64, d)
	centered := mat.DenseCopyOf(X)
	for i := 0; i < n; i++ {
		floats.Add(mean, centered.RawRowView(i))
	}
	floats.Scale(1/float64(n), mean)
	for i := 0; i < n; i++ {
		floats.Sub(centered.RawRowView(i), mean)
	}

	var svd mat.SVD
	if !svd.Factorize(centered, mat.SVDThin) {
		return errors.NewModelError("PCA.Fit", "svd", errors.New("SVD factorization failed"))
	}
	values := svd.Values(nil)

	dof := float64(max(n-1, 1))
	eig := make([]float64, len(values))
	for i, s := range values {
		eig[i] = s * s / dof
	}
	total := floats.Sum(eig)

	k := 0
	for k < len(eig) && eig[k] > p.eigenCutoff*eig[0] && eig[k] > 0 {
		k++
	}
	if p.maxComponents > 0 && k > p.maxComponents {
		k = p.maxComponents
	}
	if k == 0 {
		return errors.NewValueError("PCA.Fit", "data has no variance")
	}

	var v mat.Dense
	svd.VTo(&v)
	comps := make([]float64, k*d)
	for c := 0; c < k; c++ {
		row := comps[c*d : (c+1)*d]
		for j := 0; j < d; j++ {
			row[j] = v.At(j, c)
		}
	}

	p.nFeatures = d
	p.mean = mean
	p.components = comps
	p.eigenvalues = eig[:k:k]
	p.totalVariance = total
	p.SetFitted()

	p.logger.Info("PCA fitted",
		log.SamplesKey, n,
		log.FeaturesKey, d,
		log.ComponentsKey, k,
	)
	return nil
}

// Transform は X を主成分空間へ射影する
func (p *PCA) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.RequireFitted("PCA", "Transform"); err != nil {
		return nil, err
	}
	_, d := X.Dims()
	if d != p.nFeatures {
		return nil, errors.NewDimensionError("PCA.Transform", p.nFeatures, d, 1)
	}
	centered := mat.DenseCopyOf(X)
	n, _ := centered.Dims()
	for i := 0; i < n; i++ {
		floats.Sub(centered.RawRowView(i), p.mean)
	}
	var w mat.Dense
	w.Mul(centered, p.Components().T())
	return &w, nil
}

// FitTransform は Fit の後に Transform を行う
func (p *PCA) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := p.Fit(X); err != nil {
		return nil, err
	}
	return p.Transform(X)
}

// InverseTransform は重み W から元の空間のデータを再構成する
func (p *PCA) InverseTransform(W mat.Matrix) (mat.Matrix, error) {
	if err := p.RequireFitted("PCA", "InverseTransform"); err != nil {
		return nil, err
	}
	n, k := W.Dims()
	if k != p.NComponents() {
		return nil, errors.NewDimensionError("PCA.InverseTransform", p.NComponents(), k, 1)
	}
	var x mat.Dense
	x.Mul(W, p.Components())
	for i := 0; i < n; i++ {
		floats.Add(x.RawRowView(i), p.mean)
	}
	return &x, nil
}

// NComponents は保持した成分数を返す
func (p *PCA) NComponents() int { return len(p.eigenvalues) }

// NFeatures は学習時の特徴量数を返す
func (p *PCA) NFeatures() int { return p.nFeatures }

// Mean は学習データの平均を返す
func (p *PCA) Mean() []float64 { return p.mean }

// Components は k×d の主成分行列を返す。未学習の場合は nil
func (p *PCA) Components() *mat.Dense {
	if len(p.components) == 0 {
		return nil
	}
	return mat.NewDense(p.NComponents(), p.nFeatures, p.components)
}

// Eigenvalues は保持した成分の固有値（分散）を返す
func (p *PCA) Eigenvalues() []float64 { return p.eigenvalues }

// ExplainedVarianceRatio は各成分が説明する分散の割合を返す
func (p *PCA) ExplainedVarianceRatio() []float64 {
	ratio := make([]float64, len(p.eigenvalues))
	for i, e := range p.eigenvalues {
		ratio[i] = errors.SafeDivide(e, p.totalVariance)
	}
	return ratio
}

// TotalVariance は切り捨て前の全分散を返す
func (p *PCA) TotalVariance() float64 { return p.totalVariance }

func (p *PCA) String() string {
	if !p.IsFitted() {
		return "PCA(not fitted)"
	}
	return fmt.Sprintf("PCA(n_components=%d, n_features=%d)", p.NComponents(), p.nFeatures)
}
