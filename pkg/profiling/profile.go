package profiling

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/sirupsen/logrus"
)

// Profiler collects CPU and heap profiles for the lifetime of the process.
// Either path may be empty, in which case the respective profile is not written.
type Profiler struct {
	cpuProfile string
	memProfile string
	cpuFile    *os.File
	logger     *logrus.Entry
}

func NewProfiler(cpuProfile, memProfile string, logger *logrus.Entry) *Profiler {
	return &Profiler{cpuProfile: cpuProfile, memProfile: memProfile, logger: logger}
}

// Starts CPU profiling if requested.
func (p *Profiler) Start() error {
	if p.cpuProfile == "" {
		return nil
	}

	p.logger.WithField("path", p.cpuProfile).Info("initializing CPU profiling")

	file, err := os.Create(p.cpuProfile)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %w", err)
	}

	if err := pprof.StartCPUProfile(file); err != nil {
		file.Close()
		return fmt.Errorf("could not start CPU profile: %w", err)
	}

	p.cpuFile = file
	return nil
}

// Stops CPU profiling and writes the heap profile. Errors are logged.
func (p *Profiler) Stop() {
	if p.cpuFile != nil {
		pprof.StopCPUProfile()

		if err := p.cpuFile.Close(); err != nil {
			p.logger.WithError(err).Error("could not close CPU profile")
		}
		p.cpuFile = nil
	}

	if p.memProfile != "" {
		if err := p.writeHeapProfile(); err != nil {
			p.logger.WithError(err).Error("could not write memory profile")
		}
	}
}

func (p *Profiler) writeHeapProfile() error {
	file, err := os.Create(p.memProfile)
	if err != nil {
		return fmt.Errorf("could not create memory profile: %w", err)
	}
	defer file.Close()

	runtime.GC()

	return pprof.WriteHeapProfile(file)
}
