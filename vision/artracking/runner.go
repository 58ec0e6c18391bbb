package artracking

import (
	"context"
	"image"

	"go.uber.org/atomic"

	"go.viam.com/artrack/logging"
	"go.viam.com/artrack/utils"
)

// Runner feeds frames to a PoseEstimator from a single background goroutine. It holds at most one
// pending frame: publishing while a frame is waiting replaces it, and the replaced frame counts as
// dropped.
type Runner struct {
	estimator *PoseEstimator
	onResult  func(FrameResult)
	logger    logging.Logger

	pending   atomic.Pointer[image.Gray]
	signal    chan struct{}
	processed atomic.Int64
	dropped   atomic.Int64
	workers   utils.StoppableWorkers
}

// NewRunner starts the processing goroutine. onResult, if set, is called on that goroutine after
// every processed frame.
func NewRunner(estimator *PoseEstimator, onResult func(FrameResult), logger logging.Logger) *Runner {
	r := &Runner{
		estimator: estimator,
		onResult:  onResult,
		logger:    logger,
		signal:    make(chan struct{}, 1),
	}
	r.workers = utils.NewStoppableWorkers(r.run)
	return r
}

// Publish hands the latest frame to the runner. It never blocks.
func (r *Runner) Publish(frame *image.Gray) {
	if frame == nil {
		return
	}
	if old := r.pending.Swap(frame); old != nil {
		r.dropped.Inc()
	}
	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Processed returns the number of frames handed to the estimator.
func (r *Runner) Processed() int64 {
	return r.processed.Load()
}

// Dropped returns the number of frames replaced before being processed.
func (r *Runner) Dropped() int64 {
	return r.dropped.Load()
}

// Stop waits for the frame being processed, if any, and stops the runner. Pending frames are
// discarded.
func (r *Runner) Stop() {
	r.workers.Stop()
	if r.pending.Swap(nil) != nil {
		r.dropped.Inc()
	}
	r.logger.Debugw("runner stopped", "processed", r.Processed(), "dropped", r.Dropped())
}

func (r *Runner) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.signal:
		}
		frame := r.pending.Swap(nil)
		if frame == nil {
			continue
		}
		res := r.estimator.ProcessFrame(ctx, frame)
		r.processed.Inc()
		if r.onResult != nil {
			r.onResult(res)
		}
	}
}
