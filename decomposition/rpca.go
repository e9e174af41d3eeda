// Package decomposition は行列分解（ロバスト PCA と PCA）を提供する
//
// RobustPCA は観測行列 D を低ランク成分 L とスパース成分 S に分解する。
// マスクで欠損とされた要素は目的関数から除外され、L によって補完される。
package decomposition

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/core/model"
	"github.com/YuminosukeSato/itwmm/pkg/errors"
	"github.com/YuminosukeSato/itwmm/pkg/log"
)

// RobustPCA のデフォルト値
const (
	DefaultTol     = 1e-7
	DefaultMaxIter = 1000
	DefaultRho     = 1.5
)

// RobustPCA は欠損付きロバスト主成分分析（inexact ALM 法）
//
//	min ||L||_* + λ||P_Ω(S)||_1  s.t.  P_Ω(D) = P_Ω(L + S)
type RobustPCA struct {
	model.BaseEstimator

	lambda  float64 // 0 の場合 1/√max(n, d)
	tol     float64
	maxIter int
	rho     float64
	logger  log.Logger

	lowRank   *mat.Dense
	sparse    *mat.Dense
	nIter     int
	converged bool
}

// RPCAOption は RobustPCA の設定関数
type RPCAOption func(*RobustPCA)

// WithLambda はスパース項の重みを設定する
func WithLambda(lambda float64) RPCAOption {
	return func(r *RobustPCA) { r.lambda = lambda }
}

// WithTol は収束判定の相対残差を設定する
func WithTol(tol float64) RPCAOption {
	return func(r *RobustPCA) { r.tol = tol }
}

// WithMaxIter は最大反復回数を設定する
func WithMaxIter(n int) RPCAOption {
	return func(r *RobustPCA) { r.maxIter = n }
}

// WithRho はペナルティ係数 μ の増加率を設定する
func WithRho(rho float64) RPCAOption {
	return func(r *RobustPCA) { r.rho = rho }
}

// WithRPCALogger はロガーを設定する
func WithRPCALogger(logger log.Logger) RPCAOption {
	return func(r *RobustPCA) { r.logger = logger }
}

// NewRobustPCA は新しい RobustPCA を作成する
func NewRobustPCA(opts ...RPCAOption) *RobustPCA {
	r := &RobustPCA{
		tol:     DefaultTol,
		maxIter: DefaultMaxIter,
		rho:     DefaultRho,
		logger:  log.GetLoggerWithName("decomposition").With(log.ModelNameKey, "RobustPCA"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RobustPCA) validate() error {
	switch {
	case r.lambda < 0:
		return errors.NewValidationError("lambda", "must not be negative", r.lambda)
	case r.tol <= 0:
		return errors.NewValidationError("tol", "must be positive", r.tol)
	case r.maxIter <= 0:
		return errors.NewValidationError("max_iter", "must be positive", r.maxIter)
	case r.rho <= 1:
		return errors.NewValidationError("rho", "must be greater than 1", r.rho)
	}
	return nil
}

// Fit は D を分解する
//
// mask は D と同じ形で、0 以外が観測済みの要素を表す。nil の場合は全要素が
// 観測済みとみなす。未観測要素の値（NaN を含む）は参照されない。
func (r *RobustPCA) Fit(D, mask mat.Matrix) (err error) {
	defer errors.Recover(&err, "RobustPCA.Fit")

	if err := r.validate(); err != nil {
		return err
	}
	n, d := D.Dims()
	if n == 0 || d == 0 {
		return errors.NewModelError("RobustPCA.Fit", "empty data", errors.ErrEmptyData)
	}
	if mask != nil {
		mr, mc := mask.Dims()
		if mr != n || mc != d {
			return errors.NewInputShapeError("RobustPCA.Fit", []int{n, d}, []int{mr, mc})
		}
	}
	if err := errors.CheckMaskedMatrix("RobustPCA.Fit", D, mask, 0); err != nil {
		return err
	}
	r.Reset()
	r.converged = false
	start := time.Now()

	// 観測要素のみを持つ D と Ω
	obs := make([]bool, n*d)
	data := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			if mask == nil || mask.At(i, j) != 0 {
				obs[i*d+j] = true
				data.Set(i, j, D.At(i, j))
			}
		}
	}

	lambda := r.lambda
	if lambda == 0 {
		lambda = 1 / math.Sqrt(float64(max(n, d)))
	}

	L := mat.NewDense(n, d, nil)
	S := mat.NewDense(n, d, nil)

	normD := mat.Norm(data, 2) // 行列の場合は Frobenius ノルム
	if normD == 0 {
		r.lowRank, r.sparse, r.nIter, r.converged = L, S, 0, true
		r.SetFitted()
		return nil
	}

	norm2 := spectralNorm(data)
	var maxAbs float64
	for _, v := range data.RawMatrix().Data {
		maxAbs = math.Max(maxAbs, math.Abs(v))
	}
	dual := math.Max(norm2, maxAbs/lambda)

	Y := mat.DenseCopyOf(data)
	Y.Scale(1/dual, Y)

	mu := 1.25 / norm2
	muBar := mu * 1e7

	dRaw := data.RawMatrix().Data
	lRaw := L.RawMatrix().Data
	sRaw := S.RawMatrix().Data
	yRaw := Y.RawMatrix().Data
	tmp := mat.NewDense(n, d, nil)
	tRaw := tmp.RawMatrix().Data

	residual := math.Inf(1)
	iter := 0
	for iter < r.maxIter {
		iter++

		// S の更新: 観測要素は縮小、未観測要素は残差をそのまま吸収する
		for k := range sRaw {
			v := dRaw[k] - lRaw[k] + yRaw[k]/mu
			if obs[k] {
				sRaw[k] = shrink(v, lambda/mu)
			} else {
				sRaw[k] = v
			}
		}

		// L の更新: 特異値しきい値処理
		for k := range tRaw {
			tRaw[k] = dRaw[k] - sRaw[k] + yRaw[k]/mu
		}
		rank, err := svt(L, tmp, 1/mu)
		if err != nil {
			return err
		}

		// 双対変数の更新 Y += μZ, Z = D - L - S
		var zz float64
		for k := range yRaw {
			z := dRaw[k] - lRaw[k] - sRaw[k]
			yRaw[k] += mu * z
			zz += z * z
		}
		mu = math.Min(mu*r.rho, muBar)

		residual = math.Sqrt(zz) / normD
		if err := errors.CheckScalar("RobustPCA.Fit", residual, iter); err != nil {
			return err
		}
		if iter == 1 || iter%10 == 0 {
			r.logger.Debug("RPCA iteration",
				log.IterationKey, iter,
				log.LossKey, residual,
				log.RankKey, rank,
			)
		}
		if residual < r.tol {
			r.converged = true
			break
		}
	}

	r.lowRank, r.sparse, r.nIter = L, S, iter
	r.SetFitted()

	if !r.converged {
		errors.Warn(errors.NewConvergenceWarning("RobustPCA", iter,
			fmt.Sprintf("relative residual %.3g above tol %.3g", residual, r.tol)))
	}
	r.logger.Info("RPCA finished",
		log.IterationKey, iter,
		log.LossKey, residual,
		log.DurationMsKey, time.Since(start).Milliseconds(),
		"converged", r.converged,
	)
	return nil
}

// LowRank は低ランク成分 L を返す
func (r *RobustPCA) LowRank() (*mat.Dense, error) {
	if err := r.RequireFitted("RobustPCA", "LowRank"); err != nil {
		return nil, err
	}
	return r.lowRank, nil
}

// Sparse はスパース成分 S を返す。未観測要素には補完残差が入る
func (r *RobustPCA) Sparse() (*mat.Dense, error) {
	if err := r.RequireFitted("RobustPCA", "Sparse"); err != nil {
		return nil, err
	}
	return r.sparse, nil
}

// NIter は実行した反復回数を返す
func (r *RobustPCA) NIter() int { return r.nIter }

// Converged は収束したかどうかを返す
func (r *RobustPCA) Converged() bool { return r.converged }

func shrink(v, tau float64) float64 {
	switch {
	case v > tau:
		return v - tau
	case v < -tau:
		return v + tau
	default:
		return 0
	}
}

// svt は dst = U·max(Σ-τ, 0)·Vᵀ を計算し、残ったランクを返す
func svt(dst *mat.Dense, m *mat.Dense, tau float64) (int, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDThin); !ok {
		return 0, errors.NewModelError("RobustPCA.Fit", "svd", errors.New("SVD factorization failed"))
	}
	values := svd.Values(nil)
	rank := 0
	for _, s := range values {
		if s > tau {
			rank++
		}
	}
	if rank == 0 {
		dst.Zero()
		return 0, nil
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	n, _ := u.Dims()
	d, _ := v.Dims()

	us := mat.DenseCopyOf(u.Slice(0, n, 0, rank))
	for j := 0; j < rank; j++ {
		col := values[j] - tau
		for i := 0; i < n; i++ {
			us.Set(i, j, us.At(i, j)*col)
		}
	}
	dst.Mul(us, v.Slice(0, d, 0, rank).T())
	return rank, nil
}

// spectralNorm は最大特異値を返す
func spectralNorm(m mat.Matrix) float64 {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDNone) {
		return mat.Norm(m, 2)
	}
	return svd.Values(nil)[0]
}
