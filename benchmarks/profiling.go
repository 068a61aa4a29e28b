package benchmarks

import (
	"log"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
)

// startProfiling starts the cpu profile, the returned function stops it and
// writes the heap profile
func startProfiling(logger *log.Logger) func() {
	var cpuFile *os.File
	if cpuprofile != "" {
		cpuProfPath := path.Join(saveFile, cpuprofile)
		logger.Printf("profiling cpu to %s", cpuProfPath)
		f, err := os.Create(cpuProfPath)
		if err != nil {
			logger.Printf("could not create cpu profile: %v", err)
		} else if err := pprof.StartCPUProfile(f); err != nil {
			logger.Printf("could not start cpu profile: %v", err)
			f.Close()
		} else {
			cpuFile = f
		}
	}

	return func() {
		if cpuFile != nil {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}
		if memprofile == "" {
			return
		}
		memProfPath := path.Join(saveFile, memprofile)
		logger.Printf("profiling memory to %s", memProfPath)
		f, err := os.Create(memProfPath)
		if err != nil {
			logger.Printf("could not create memory profile: %v", err)
			return
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			logger.Printf("could not write memory profile: %v", err)
		}
	}
}
