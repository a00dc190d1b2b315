package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/drakos74/planet-vision/internal/buffer"
	"github.com/drakos74/planet-vision/internal/dataset"
	xmath "github.com/drakos74/planet-vision/internal/math"
	"github.com/drakos74/planet-vision/internal/metrics"
	"github.com/drakos74/planet-vision/internal/net"
	"github.com/drakos74/planet-vision/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const checkpointLabel = "network"

// Config defines the training run parameters.
type Config struct {
	Name       string
	Epochs     int
	Checkpoint int
	Window     int
}

// Trainer drives the epoch loop of a network over a training
// and a validation sequence, tracking losses and keeping checkpoints.
type Trainer struct {
	run        string
	config     Config
	network    *net.Network
	train      *dataset.Sequence
	validate   *dataset.Sequence
	storage    storage.Persistence
	trainStats *buffer.StatsCollector
	history    *buffer.Ring
	best       Checkpoint
}

// Checkpoint identifies a stored network state within a run.
type Checkpoint struct {
	Epoch      int        `json:"epoch"`
	Run        string     `json:"run"`
	Evaluation Evaluation `json:"evaluation"`
}

// Report is the outcome of a completed training run.
type Report struct {
	Run         string     `json:"run"`
	Epochs      int        `json:"epochs"`
	Samples     int        `json:"samples"`
	Duration    string     `json:"duration"`
	Best        Checkpoint `json:"best"`
	Interrupted bool       `json:"interrupted,omitempty"`
}

// New creates a trainer for the given network and sequences.
// The persistence receives a checkpoint every config.Checkpoint epochs,
// zero disables checkpointing altogether.
func New(config Config, network *net.Network, train, validate *dataset.Sequence, persistence storage.Persistence) *Trainer {
	if config.Checkpoint < 0 {
		config.Checkpoint = 0
	}
	if config.Window <= 0 {
		config.Window = 3
	}
	return &Trainer{
		run:      uuid.New().String(),
		config:   config,
		network:  network,
		train:    train,
		validate: validate,
		storage:  persistence,
		// weather loss, ground loss, combined loss
		trainStats: buffer.NewStatsCollector(3),
		history:    buffer.NewRing(config.Window),
		best:       Checkpoint{Epoch: -1, Evaluation: Evaluation{Loss: math.MaxFloat64}},
	}
}

// Run returns the run id of the trainer.
func (t *Trainer) Run() string {
	return t.run
}

// Train executes the configured number of epochs.
// It returns the report of the run together with the first error encountered.
// The best checkpoint by validation loss is restored into the network
// before returning.
func (t *Trainer) Train(ctx context.Context) (Report, error) {

	started := time.Now()
	samples := 0

	log.Info().
		Str("run", t.run).
		Str("model", t.config.Name).
		Int("epochs", t.config.Epochs).
		Int("train", t.train.Len()).
		Int("validate", t.validate.Len()).
		Msg("starting training")

	report := Report{Run: t.run}

	for epoch := 0; epoch < t.config.Epochs; epoch++ {
		select {
		case <-ctx.Done():
			report.Interrupted = true
			return t.finish(report, started, samples), ctx.Err()
		default:
		}

		n, err := t.epoch(ctx, epoch)
		samples += n
		if err != nil {
			return t.finish(report, started, samples), err
		}
		report.Epochs = epoch + 1
	}

	return t.finish(report, started, samples), nil
}

// epoch runs one pass over the training sequence followed by a
// validation pass, and checkpoints the network if due.
func (t *Trainer) epoch(ctx context.Context, epoch int) (int, error) {

	samples := 0
	epochStats := buffer.NewStatsCollector(3)

	for batch := range t.train.Epoch(ctx) {
		if batch.Err != nil {
			return samples, fmt.Errorf("could not load batch %d at epoch %d: %w", batch.Index, epoch, batch.Err)
		}
		for _, sample := range batch.Samples {
			loss, err := t.network.Train(sample.Pixels, sample.Weather, sample.Ground)
			if err != nil {
				return samples, fmt.Errorf("training failed at epoch %d: %w", epoch, err)
			}
			t.trainStats.Push(loss.Weather, loss.Ground, loss.Combined)
			epochStats.Push(loss.Weather, loss.Ground, loss.Combined)
			samples++
		}
		metrics.Observer.TrackSamples("train", len(batch.Samples))
	}

	evaluation, err := Evaluate(ctx, t.network, t.validate)
	if err != nil {
		return samples, fmt.Errorf("validation failed at epoch %d: %w", epoch, err)
	}
	t.history.Push(evaluation)

	stats := epochStats.Stats()
	log.Info().
		Str("run", t.run).
		Int("epoch", epoch).
		Int("samples", samples).
		Float64("loss", stats[2].Avg()).
		Float64("weather-loss", stats[0].Avg()).
		Float64("ground-loss", stats[1].Avg()).
		Float64("val-loss", evaluation.Loss).
		Float64("val-accuracy", evaluation.WeatherAccuracy).
		Float64("val-f2", evaluation.GroundF2).
		Float64("trend", t.trend()).
		Msg("epoch")

	if t.config.Checkpoint > 0 && (epoch+1)%t.config.Checkpoint == 0 {
		if err := t.checkpoint(epoch, evaluation); err != nil {
			return samples, err
		}
	}

	return samples, nil
}

// checkpoint stores the network state under the current epoch
// and tracks the best one by validation loss.
func (t *Trainer) checkpoint(epoch int, evaluation Evaluation) error {

	key := t.key(epoch)
	if err := t.storage.Store(key, t.network.State()); err != nil {
		return fmt.Errorf("could not store checkpoint for epoch %d: %w", epoch, err)
	}

	if evaluation.Loss < t.best.Evaluation.Loss {
		t.best = Checkpoint{
			Epoch:      epoch,
			Run:        t.run,
			Evaluation: evaluation,
		}
		log.Debug().
			Str("run", t.run).
			Int("epoch", epoch).
			Float64("val-loss", evaluation.Loss).
			Msg("new best checkpoint")
	}

	return nil
}

// finish restores the best checkpoint and completes the report.
func (t *Trainer) finish(report Report, started time.Time, samples int) Report {

	report.Samples = samples
	report.Duration = time.Since(started).Round(time.Millisecond).String()
	report.Best = t.best

	if t.best.Epoch >= 0 {
		var state net.State
		if err := t.storage.Load(t.key(t.best.Epoch), &state); err != nil {
			log.Warn().Err(err).
				Str("run", t.run).
				Int("epoch", t.best.Epoch).
				Msg("could not restore best checkpoint")
		} else if err := t.network.Restore(state); err != nil {
			log.Warn().Err(err).
				Str("run", t.run).
				Int("epoch", t.best.Epoch).
				Msg("could not apply best checkpoint")
		}
	}

	log.Info().
		Str("run", t.run).
		Int("epochs", report.Epochs).
		Int("samples", report.Samples).
		Str("duration", report.Duration).
		Int("best-epoch", t.best.Epoch).
		Bool("interrupted", report.Interrupted).
		Msg("training finished")

	return report
}

// Network returns the trained network.
func (t *Trainer) Network() *net.Network {
	return t.network
}

// Stats returns the streaming loss statistics of the whole run.
func (t *Trainer) Stats() []*buffer.Stats {
	return t.trainStats.Stats()
}

// History returns the evaluations of the most recent epochs.
func (t *Trainer) History() []Evaluation {
	vv := t.history.Get(func(v interface{}) interface{} {
		return v
	})
	history := make([]Evaluation, len(vv))
	for i, v := range vv {
		history[i] = v.(Evaluation)
	}
	return history
}

// trend fits a line through the recent validation losses.
// A negative slope means the validation loss is still improving.
func (t *Trainer) trend() float64 {
	if t.history.Size() < 2 {
		return 0
	}
	history := t.History()
	losses := make([]float64, len(history))
	for i, evaluation := range history {
		losses[i] = evaluation.Loss
	}
	slope, err := xmath.Trend(losses)
	if err != nil {
		return 0
	}
	return slope
}

func (t *Trainer) key(epoch int) storage.Key {
	return storage.Key{
		Hash:  int64(epoch),
		Name:  t.config.Name,
		Label: checkpointLabel,
	}
}
