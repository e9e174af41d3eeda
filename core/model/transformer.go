package model

import "gonum.org/v1/gonum/mat"

// Transformer はデータ変換のインターフェース
// 行がサンプル、列が特徴量の行列を受け取る
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// InverseTransformer は変換を元の空間に戻せる Transformer
type InverseTransformer interface {
	Transformer

	// InverseTransform は変換後の表現から元の空間のデータを再構成する
	InverseTransform(W mat.Matrix) (mat.Matrix, error)
}
