/*
Package logger bootstraps klog for the promptarmor binary.

Levels:

0: lifecycle (listening, reloaded, shutting down).

1: one line per sanitized or restored exchange: host, provider, counts
and risk. Secret values are never logged at any level.

2: everything else, including swallowed telemetry failures, pruned
dashboard subscribers and tunnel passthroughs.

Functions that return an error do not also log it.
*/
package logger

import (
	"flag"
	"strconv"
	"sync"

	"github.com/go-logr/logr"
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

var lock sync.Mutex

// InitFlags adds klog's -v flag to flags.
func InitFlags(flags *pflag.FlagSet) {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)

	klogFlags.VisitAll(func(f *flag.Flag) {
		if f.Name == "v" {
			flags.AddGoFlag(f)
		}
	})
}

// SetVerbosity sets klog's verbosity directly. Used by tests and by
// callers that embed the packages as a library.
func SetVerbosity(v int) {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	klogFlags.Set("v", strconv.Itoa(v))
}

// SetQuiet discards all klog output, or restores the default logger.
func SetQuiet(quiet bool) {
	lock.Lock()
	defer lock.Unlock()

	if quiet {
		klog.SetLogger(logr.Discard())
	} else {
		klog.ClearLogger()
	}
}
