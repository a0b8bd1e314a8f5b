package transcoding

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"starsound/internal/logging"
	"starsound/internal/services"
	"starsound/internal/services/ffmpeg"
)

// MaxWorkers caps concurrent ffmpeg invocations. Three keeps the disk and
// CPU busy without starving the machine; more workers have not measured
// faster in practice.
const MaxWorkers = 3

// maxShownErrors bounds the error list carried in a Summary; the remainder
// is reported as a count.
const maxShownErrors = 5

// ConversionJob is one ffmpeg invocation. Immutable once enqueued.
type ConversionJob struct {
	InputPath       string
	OutputPath      string
	BitrateKbps     int
	Channels        int
	FilterChain     string
	DurationSeconds float64
}

// JobResult records how one job ended.
type JobResult struct {
	Job              ConversionJob
	Err              error
	ClippingWarnings int
	Elapsed          time.Duration
}

// EventKind discriminates pool events.
type EventKind int

const (
	EventStarted EventKind = iota
	EventProgress
	EventFinished
)

// Event is delivered to the RunAll callback. Index is the job's 1-based
// position in submission order; Progress is set for EventProgress and
// Result for EventFinished.
type Event struct {
	Kind     EventKind
	Job      ConversionJob
	Index    int
	Total    int
	Progress ffmpeg.Progress
	Result   *JobResult
}

// Summary aggregates a whole RunAll batch. Errors holds at most
// maxShownErrors messages; ErrorOverflow counts the rest.
type Summary struct {
	Total         int
	Succeeded     int
	Failed        int
	Errors        []string
	ErrorOverflow int
	Results       []JobResult
}

// Fail demotes the result at index i to a failure and updates the counters
// and the bounded error list. Callers running post-checks on finished
// outputs use this to reject a conversion after the fact. No-op when the
// result already failed.
func (s *Summary) Fail(i int, err error) {
	if i < 0 || i >= len(s.Results) || err == nil || s.Results[i].Err != nil {
		return
	}
	s.Results[i].Err = err
	s.Succeeded--
	s.Failed++
	if len(s.Errors) < maxShownErrors {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", filepath.Base(s.Results[i].Job.InputPath), err))
	} else {
		s.ErrorOverflow++
	}
}

// Pool runs conversion jobs over a bounded number of workers.
type Pool struct {
	client  ffmpeg.Client
	workers int
	logger  *slog.Logger

	// JobTimeout, when positive, bounds each ffmpeg invocation. It applies
	// per encode, independent of the run context, which stops dispatching
	// but never kills a running encode.
	JobTimeout time.Duration
}

// NewPool builds a pool with the given worker count, clamped to [1,
// MaxWorkers].
func NewPool(client ffmpeg.Client, workers int, logger *slog.Logger) *Pool {
	if workers <= 0 || workers > MaxWorkers {
		workers = MaxWorkers
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pool{
		client:  client,
		workers: workers,
		logger:  logging.NewComponentLogger(logger, "transcoding"),
	}
}

// RunAll executes every job and blocks until all of them finish. Workers
// emit events over a channel drained by a single consumer goroutine, which
// is the only caller of onEvent; the callback needs no locking. Jobs finish
// out of order. Cancelling ctx stops dispatch of jobs that have not started;
// encodes already running are left to finish.
func (p *Pool) RunAll(ctx context.Context, jobs []ConversionJob, onEvent func(Event)) Summary {
	total := len(jobs)
	if total == 0 {
		return Summary{}
	}

	type queued struct {
		job   ConversionJob
		index int
	}
	queue := make(chan queued)
	events := make(chan Event)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range queue {
				p.runJob(ctx, item.job, item.index, total, events)
			}
		}()
	}

	summary := Summary{Total: total}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			if onEvent != nil {
				onEvent(event)
			}
			if event.Kind != EventFinished || event.Result == nil {
				continue
			}
			result := *event.Result
			summary.Results = append(summary.Results, result)
			if result.Err == nil {
				summary.Succeeded++
				continue
			}
			summary.Failed++
			if len(summary.Errors) < maxShownErrors {
				summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", filepath.Base(result.Job.InputPath), result.Err))
			} else {
				summary.ErrorOverflow++
			}
		}
	}()

	for i, job := range jobs {
		queue <- queued{job: job, index: i + 1}
	}
	close(queue)
	wg.Wait()
	close(events)
	<-done

	p.logger.Info("conversion batch finished",
		slog.Int("total", summary.Total),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed))
	return summary
}

func (p *Pool) runJob(ctx context.Context, job ConversionJob, index, total int, events chan<- Event) {
	events <- Event{Kind: EventStarted, Job: job, Index: index, Total: total}

	result := JobResult{Job: job}
	if err := ctx.Err(); err != nil {
		result.Err = fmt.Errorf("not started: %w", err)
		events <- Event{Kind: EventFinished, Job: job, Index: index, Total: total, Result: &result}
		return
	}

	started := time.Now()
	// Once an encode is running it is allowed to finish even if the run is
	// cancelled; only dispatch honours ctx.
	encodeCtx := services.WithJobID(context.WithoutCancel(ctx), filepath.Base(job.InputPath))
	if p.JobTimeout > 0 {
		var cancel context.CancelFunc
		encodeCtx, cancel = context.WithTimeout(encodeCtx, p.JobTimeout)
		defer cancel()
	}
	converted, err := p.client.Convert(encodeCtx, ffmpeg.ConvertRequest{
		InputPath:       job.InputPath,
		OutputPath:      job.OutputPath,
		BitrateKbps:     job.BitrateKbps,
		Channels:        job.Channels,
		FilterChain:     job.FilterChain,
		DurationSeconds: job.DurationSeconds,
		OnProgress: func(progress ffmpeg.Progress) {
			events <- Event{Kind: EventProgress, Job: job, Index: index, Total: total, Progress: progress}
		},
	})
	result.Elapsed = time.Since(started)
	result.Err = err
	result.ClippingWarnings = converted.ClippingWarnings

	logger := logging.WithContext(encodeCtx, p.logger)
	switch {
	case err != nil:
		logger.Warn("conversion failed", logging.Error(err), slog.Duration("elapsed", result.Elapsed))
	case result.ClippingWarnings > 0:
		logger.Warn("conversion finished with clipping",
			slog.Int("clipping_warnings", result.ClippingWarnings),
			slog.Duration("elapsed", result.Elapsed))
	default:
		logger.Debug("conversion finished",
			slog.String("output", job.OutputPath),
			slog.Duration("elapsed", result.Elapsed))
	}

	events <- Event{Kind: EventFinished, Job: job, Index: index, Total: total, Result: &result}
}
