package errors

import (
	"fmt"
	"math"
	"os"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		kind     string
		err      error
		wantMsg  string
		hasStack bool
	}{
		{
			name:     "with original error",
			op:       "Builder.Build",
			kind:     "rpca failed",
			err:      fmt.Errorf("test error"),
			wantMsg:  "itwmm: Builder.Build: rpca failed: test error",
			hasStack: true,
		},
		{
			name:     "without original error",
			op:       "Model.Save",
			kind:     "not fitted",
			err:      nil,
			wantMsg:  "itwmm: Model.Save: not fitted",
			hasStack: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			if tt.hasStack {
				formatted := fmt.Sprintf("%+v", err)
				if !strings.Contains(formatted, "errors_test.go") {
					t.Error("Expected stack trace to contain test file name")
				}
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Builder.Build", 53215, 53149, 1)

	want := "itwmm: Builder.Build: dimension mismatch on axis 1 (features). Expected 53215, got 53149"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("PCA", "Transform")

	want := "itwmm: PCA: this model is not fitted yet. Call Fit() before using Transform()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewLoadError(t *testing.T) {
	err := NewLoadError("fit", "fits/a.txt", os.ErrNotExist)

	// 元のエラーまで辿れること
	if !Is(err, os.ErrNotExist) {
		t.Error("Expected LoadError to unwrap to os.ErrNotExist")
	}

	var loadErr *LoadError
	if !As(err, &loadErr) {
		t.Fatal("Error should be castable to *LoadError")
	}
	if loadErr.What != "fit" || loadErr.Path != "fits/a.txt" {
		t.Errorf("unexpected LoadError fields: %+v", loadErr)
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("diagonal_range", "must be positive", -1.0)

	want := "itwmm: validation failed for parameter 'diagonal_range': must be positive (got: -1)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
}

func TestNewConvergenceWarning(t *testing.T) {
	warn := NewConvergenceWarning("RobustPCA", 1000, "residual 1.2e-03")

	want := "RobustPCA failed to converge after 1000 iterations: residual 1.2e-03"
	if warn.Error() != want {
		t.Errorf("Error() = %v, want %v", warn.Error(), want)
	}
}

func TestWarnRoutesToZerologFunc(t *testing.T) {
	var got error
	SetZerologWarnFunc(func(w error) { got = w })
	defer SetZerologWarnFunc(nil)

	w := NewConvergenceWarning("RobustPCA", 10, "")
	Warn(w)

	if got != w {
		t.Errorf("Warn() delivered %v, want %v", got, w)
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Build", 10, 0)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}

	expectedMsg := "in Build: expected 10, got 0"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckMaskedMatrix(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{1, math.NaN(), 3, 4})
	observed := mat.NewDense(2, 2, []float64{1, 0, 1, 1})

	if err := CheckMaskedMatrix("test", X, observed, 0); err != nil {
		t.Errorf("NaN under a zero mask should be ignored, got %v", err)
	}
	if err := CheckMatrix("test", X, 0); err == nil {
		t.Error("Expected CheckMatrix to report NaN")
	}
}
