package logger

import (
	"testing"

	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
)

func TestInitFlagsExposesOnlyVerbosity(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	InitFlags(flags)

	if flags.Lookup("v") == nil {
		t.Fatal("expected -v flag")
	}
	if flags.Lookup("logtostderr") != nil || flags.Lookup("log_file") != nil {
		t.Fatal("unexpected klog flags exposed")
	}
	if err := flags.Parse([]string{"-v", "2"}); err != nil {
		t.Fatal(err)
	}
	if !klog.V(2).Enabled() {
		t.Fatal("expected verbosity 2 after parsing -v")
	}
	SetVerbosity(0)
}

func TestSetVerbosity(t *testing.T) {
	SetVerbosity(1)
	defer SetVerbosity(0)

	if !klog.V(1).Enabled() {
		t.Fatal("expected V(1) enabled")
	}
	if klog.V(2).Enabled() {
		t.Fatal("expected V(2) disabled")
	}
}

func TestSetQuietToggles(t *testing.T) {
	SetQuiet(true)
	if klog.Background().GetSink() != nil {
		t.Fatal("expected klog output to be discarded")
	}
	klog.InfoS("discarded")

	SetQuiet(false)
	if klog.Background().GetSink() == nil {
		t.Fatal("expected the default klog logger back")
	}
}
