package ui

import (
	"sync"
	"time"
)

// ProgressTracker manages progress state across stages.
// It is safe for concurrent use.
type ProgressTracker struct {
	mu          sync.RWMutex
	stage       Stage
	current     int
	total       int
	currentFile string
	startTime   time.Time
	stageStart  time.Time
	stageTimes  StageTimings
	errors      []ErrorEvent
	warnings    []ErrorEvent

	lastETA time.Duration

	lastCurrent   int
	lastSpeedCalc time.Time
	currentSpeed  float64 // Documents/sec
	avgSpeed      float64
	speedSamples  int
}

// ProgressStats contains a snapshot of current progress.
type ProgressStats struct {
	Stage       Stage
	Current     int
	Total       int
	Progress    float64
	ETA         time.Duration
	CurrentFile string
	ErrorCount  int
	WarnCount   int
	DocsPerSec  float64
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker() *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		stage:         StageScanning,
		startTime:     now,
		stageStart:    now,
		lastSpeedCalc: now,
	}
}

// SetStage transitions to a new stage, closing the timing of the previous one.
func (p *ProgressTracker) SetStage(stage Stage, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if stage != p.stage {
		p.recordStageTime(now.Sub(p.stageStart))
		p.stageStart = now
	}

	p.stage = stage
	p.total = total
	p.current = 0
	p.currentFile = ""
	p.lastETA = 0

	p.lastCurrent = 0
	p.lastSpeedCalc = now
	p.currentSpeed = 0
	p.avgSpeed = 0
	p.speedSamples = 0
}

// recordStageTime must be called with the lock held.
func (p *ProgressTracker) recordStageTime(d time.Duration) {
	switch p.stage {
	case StageScanning:
		p.stageTimes.Scan += d
	case StageIndexing:
		p.stageTimes.Index += d
	case StagePruning:
		p.stageTimes.Prune += d
	}
}

// Update updates progress within current stage.
func (p *ProgressTracker) Update(current int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = current
	if file != "" {
		p.currentFile = file
	}

	// Sample speed every 500ms to avoid noise
	now := time.Now()
	elapsed := now.Sub(p.lastSpeedCalc)
	if elapsed >= 500*time.Millisecond {
		delta := current - p.lastCurrent
		if delta > 0 {
			speed := float64(delta) / elapsed.Seconds()
			p.currentSpeed = speed
			p.speedSamples++
			if p.speedSamples == 1 {
				p.avgSpeed = speed
			} else {
				p.avgSpeed = 0.2*speed + 0.8*p.avgSpeed
			}
		}
		p.lastCurrent = current
		p.lastSpeedCalc = now
	}
}

// AddError records an error or warning.
func (p *ProgressTracker) AddError(event ErrorEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if event.IsWarn {
		p.warnings = append(p.warnings, event)
	} else {
		p.errors = append(p.errors, event)
	}
}

// Progress returns current progress percentage (0.0-1.0).
func (p *ProgressTracker) Progress() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.progress()
}

func (p *ProgressTracker) progress() float64 {
	if p.total == 0 {
		return 0.0
	}
	progress := float64(p.current) / float64(p.total)
	if progress > 1.0 {
		return 1.0
	}
	return progress
}

// Elapsed returns time since tracker creation.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return time.Since(p.startTime)
}

// StageTimings returns the accumulated duration of every finished stage plus
// the one in progress.
func (p *ProgressTracker) StageTimings() StageTimings {
	p.mu.RLock()
	defer p.mu.RUnlock()

	timings := p.stageTimes
	running := time.Since(p.stageStart)
	switch p.stage {
	case StageScanning:
		timings.Scan += running
	case StageIndexing:
		timings.Index += running
	case StagePruning:
		timings.Prune += running
	}
	return timings
}

// Stats returns current statistics snapshot.
// Uses write lock because calculateETA modifies lastETA for smoothing.
func (p *ProgressTracker) Stats() ProgressStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return ProgressStats{
		Stage:       p.stage,
		Current:     p.current,
		Total:       p.total,
		Progress:    p.progress(),
		ETA:         p.calculateETA(),
		CurrentFile: p.currentFile,
		ErrorCount:  len(p.errors),
		WarnCount:   len(p.warnings),
		DocsPerSec:  p.avgSpeed,
	}
}

// etaSmoothingFactor is the weight of the newest ETA sample.
const etaSmoothingFactor = 0.3

// calculateETA must be called with the lock held.
func (p *ProgressTracker) calculateETA() time.Duration {
	if p.current == 0 || p.total == 0 {
		return 0
	}

	elapsed := time.Since(p.stageStart)
	progress := float64(p.current) / float64(p.total)
	if progress <= 0 || progress >= 1.0 {
		return 0
	}

	rawRemaining := time.Duration(float64(elapsed)/progress) - elapsed
	if rawRemaining < 0 {
		return 0
	}

	if p.lastETA == 0 {
		p.lastETA = rawRemaining
		return rawRemaining
	}

	smoothed := time.Duration(
		etaSmoothingFactor*float64(rawRemaining) +
			(1-etaSmoothingFactor)*float64(p.lastETA),
	)
	p.lastETA = smoothed
	return smoothed
}

// Errors returns the list of recorded errors.
func (p *ProgressTracker) Errors() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.errors))
	copy(result, p.errors)
	return result
}

// Warnings returns the list of recorded warnings.
func (p *ProgressTracker) Warnings() []ErrorEvent {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]ErrorEvent, len(p.warnings))
	copy(result, p.warnings)
	return result
}
