package cmd

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/named-data/ndnd-ddos/fw/core"
	"go.uber.org/multierr"
)

// Profiler writes CPU, memory and block profiles of a run.
type Profiler struct {
	CpuPath   string
	MemPath   string
	BlockPath string

	cpuFile *os.File
	block   *pprof.Profile
}

func (p *Profiler) String() string {
	return "profiler"
}

// Start begins CPU and block profiling, as configured.
func (p *Profiler) Start() (err error) {
	if p.CpuPath != "" {
		p.cpuFile, err = os.Create(p.CpuPath)
		if err != nil {
			return fmt.Errorf("unable to open output file for CPU profile: %w", err)
		}

		core.Log.Info(p, "Profiling CPU", "out", p.CpuPath)
		if err = pprof.StartCPUProfile(p.cpuFile); err != nil {
			p.cpuFile.Close()
			p.cpuFile = nil
			return err
		}
	}

	if p.BlockPath != "" {
		core.Log.Info(p, "Profiling blocking operations", "out", p.BlockPath)
		runtime.SetBlockProfileRate(1)
		p.block = pprof.Lookup("block")
	}
	return nil
}

// Stop writes the block and memory profiles and ends CPU profiling.
func (p *Profiler) Stop() (err error) {
	if p.block != nil {
		err = multierr.Append(err, writeProfile(p.BlockPath, func(f *os.File) error {
			return p.block.WriteTo(f, 0)
		}))
	}

	if p.MemPath != "" {
		core.Log.Info(p, "Profiling memory", "out", p.MemPath)
		runtime.GC()
		err = multierr.Append(err, writeProfile(p.MemPath, func(f *os.File) error {
			return pprof.WriteHeapProfile(f)
		}))
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		err = multierr.Append(err, p.cpuFile.Close())
	}
	return err
}

func writeProfile(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to open output file for profile: %w", err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return write(f)
}
