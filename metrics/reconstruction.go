// Package metrics は再構成誤差の評価指標を提供する
//
// すべての関数はマスク付き: mask が 0 の要素（欠損・遮蔽）は無視される。
// mask が nil の場合は全要素を使う。
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/itwmm/pkg/errors"
)

// observed は mask が 0 でない要素について fn を呼び、その数を返す
func observed(op string, yTrue, yPred, mask mat.Matrix, fn func(t, p float64)) (int, error) {
	r, c := yTrue.Dims()
	if r == 0 || c == 0 {
		return 0, errors.NewValueError(op, "empty matrix")
	}
	if pr, pc := yPred.Dims(); pr != r || pc != c {
		return 0, errors.NewInputShapeError(op, []int{r, c}, []int{pr, pc})
	}
	if mask != nil {
		if mr, mc := mask.Dims(); mr != r || mc != c {
			return 0, errors.NewInputShapeError(op, []int{r, c}, []int{mr, mc})
		}
	}

	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mask != nil && mask.At(i, j) == 0 {
				continue
			}
			fn(yTrue.At(i, j), yPred.At(i, j))
			n++
		}
	}
	if n == 0 {
		return 0, errors.NewValueError(op, "no observed entries")
	}
	return n, nil
}

// MaskedMSE は観測要素の平均二乗誤差を計算する
func MaskedMSE(yTrue, yPred, mask mat.Matrix) (float64, error) {
	var sum float64
	n, err := observed("MaskedMSE", yTrue, yPred, mask, func(t, p float64) {
		d := t - p
		sum += d * d
	})
	if err != nil {
		return 0, err
	}
	return sum / float64(n), nil
}

// MaskedRMSE は観測要素の二乗平均平方根誤差を計算する
func MaskedRMSE(yTrue, yPred, mask mat.Matrix) (float64, error) {
	mse, err := MaskedMSE(yTrue, yPred, mask)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MaskedMAE は観測要素の平均絶対誤差を計算する
func MaskedMAE(yTrue, yPred, mask mat.Matrix) (float64, error) {
	var sum float64
	n, err := observed("MaskedMAE", yTrue, yPred, mask, func(t, p float64) {
		sum += math.Abs(t - p)
	})
	if err != nil {
		return 0, err
	}
	return sum / float64(n), nil
}

// MaskedR2Score は観測要素の決定係数を計算する
//
// R² = 1 - Σ(y - ŷ)² / Σ(y - ȳ)²、ȳ は観測要素全体の平均
func MaskedR2Score(yTrue, yPred, mask mat.Matrix) (float64, error) {
	var sum, sumSq, rss float64
	n, err := observed("MaskedR2Score", yTrue, yPred, mask, func(t, p float64) {
		sum += t
		sumSq += t * t
		rss += (t - p) * (t - p)
	})
	if err != nil {
		return 0, err
	}
	mean := sum / float64(n)
	tss := sumSq - float64(n)*mean*mean
	if tss <= 0 {
		return 0, errors.NewValueError("MaskedR2Score", "total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}
