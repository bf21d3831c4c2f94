package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"EnergyPulse/internal/domain/models"
)

// MinLookback is the minimum series length required for training.
const MinLookback = 30

// z95 is the normal quantile for 95% prediction intervals.
const z95 = 1.959963984540054

// outOfBandFactor bounds how far beyond the observed price range an iterated
// prediction may go before the fit is rejected as degenerate.
const outOfBandFactor = 10.0

// regressor is the closed dispatch target for both model kinds.
type regressor interface {
	predict(feats []float64) float64
}

// Engine trains a fresh model per request; no model state survives a call.
type Engine struct {
	forestCfg forestConfig
	testFrac  float64
}

// Option configures Engine.
type Option func(*Engine)

// WithForestSeed fixes the bootstrap RNG seed.
func WithForestSeed(seed int64) Option {
	return func(e *Engine) { e.forestCfg.seed = seed }
}

// WithForestSize sets tree count and depth cap.
func WithForestSize(trees, maxDepth int) Option {
	return func(e *Engine) {
		if trees > 0 {
			e.forestCfg.trees = trees
		}
		if maxDepth > 0 {
			e.forestCfg.maxDepth = maxDepth
		}
	}
}

// New creates a forecast engine.
func New(opts ...Option) *Engine {
	e := &Engine{forestCfg: defaultForestConfig(), testFrac: 0.2}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Forecast trains on the series and projects horizon steps forward. Each
// predicted value is appended to the working window and feeds the next
// step's lag features; there is no other horizon-extension strategy.
func (e *Engine) Forecast(ctx context.Context, series *models.PriceSeries,
	horizon int, kind models.ModelKind) (*models.ForecastResult, error) {

	if horizon < 1 {
		return nil, fmt.Errorf("horizon %d: %w", horizon, models.ErrConfigInvalid)
	}
	n := series.Len()
	if n < MinLookback {
		return nil, fmt.Errorf("series %s has %d points, need %d: %w",
			series.Instrument, n, MinLookback, models.ErrInsufficientData)
	}

	closes := series.Closes()
	timestamps := series.Timestamps()

	x, y := buildTraining(closes, timestamps)
	if len(x) < 4 {
		return nil, fmt.Errorf("series %s yields %d usable rows: %w",
			series.Instrument, len(x), models.ErrInsufficientData)
	}
	if sampleStd(y) == 0 {
		return nil, fmt.Errorf("series %s has zero-variance target: %w",
			series.Instrument, models.ErrTrainingFailed)
	}

	// Chronological split: the tail is the validation set.
	splitAt := int(float64(len(x)) * (1 - e.testFrac))
	if splitAt < 1 {
		splitAt = 1
	}
	if splitAt >= len(x) {
		splitAt = len(x) - 1
	}
	xTrain, xTest := x[:splitAt], x[splitAt:]
	yTrain, yTest := y[:splitAt], y[splitAt:]

	sc := fitScaler(xTrain)

	model, err := e.fit(kind, sc.transformAll(xTrain), yTrain)
	if err != nil {
		return nil, err
	}

	meta := models.ForecastMeta{
		Model:          kind,
		Horizon:        horizon,
		TrainingWindow: n,
	}
	meta.TrainMAE, meta.TrainRMSE = evaluate(model, sc, xTrain, yTrain)
	meta.TestMAE, meta.TestRMSE = evaluate(model, sc, xTest, yTest)

	residStd := residualStd(model, sc, xTest, yTest)
	if residStd == 0 {
		residStd = residualStd(model, sc, xTrain, yTrain)
	}
	margin := z95 * residStd

	work := make([]float64, n, n+horizon)
	copy(work, closes)
	lastTS := timestamps[n-1]
	step := series.Step()

	// A fit that shoots far outside the observed price range is degenerate,
	// even when the weights are finite.
	lo, hi := minMax(closes)
	span := hi - lo
	if span == 0 {
		span = math.Abs(hi)
	}
	if span == 0 {
		span = 1
	}
	bandLo, bandHi := lo-outOfBandFactor*span, hi+outOfBandFactor*span

	points := make([]models.ForecastPoint, 0, horizon)
	for h := 0; h < horizon; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		nextTS := lastTS.Add(step)
		pred := model.predict(sc.transform(featuresAt(work, nextTS)))
		if math.IsNaN(pred) || math.IsInf(pred, 0) || pred < bandLo || pred > bandHi {
			return nil, fmt.Errorf("degenerate prediction %g at step %d: %w", pred, h+1, models.ErrTrainingFailed)
		}
		points = append(points, models.ForecastPoint{
			Timestamp: nextTS,
			Value:     pred,
			Lower:     pred - margin,
			Upper:     pred + margin,
		})
		work = append(work, pred)
		lastTS = nextTS
	}

	return &models.ForecastResult{
		Instrument: series.Instrument,
		Points:     points,
		Meta:       meta,
		CreatedAt:  time.Now(),
	}, nil
}

func (e *Engine) fit(kind models.ModelKind, x [][]float64, y []float64) (regressor, error) {
	switch kind {
	case models.ModelLinear:
		return fitLinear(x, y)
	case models.ModelForest:
		return fitForest(x, y, e.forestCfg)
	}
	return nil, fmt.Errorf("model kind %q: %w", kind, models.ErrConfigInvalid)
}

func evaluate(m regressor, sc *scaler, x [][]float64, y []float64) (mae, rmse float64) {
	if len(x) == 0 {
		return 0, 0
	}
	var absSum, sqSum float64
	for i, row := range x {
		d := m.predict(sc.transform(row)) - y[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(x))
	return absSum / n, math.Sqrt(sqSum / n)
}

func minMax(xs []float64) (lo, hi float64) {
	lo, hi = xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func residualStd(m regressor, sc *scaler, x [][]float64, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	resid := make([]float64, len(x))
	for i, row := range x {
		resid[i] = y[i] - m.predict(sc.transform(row))
	}
	return sampleStd(resid)
}
