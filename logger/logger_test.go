package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestJSONOutputCarriesFields(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "json", "stdout", 0); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithComponent("verifier").WithFields(Fields{"contract": "<STK AAPL USD>"}).Info("not a valid contract")

	out := buf.String()
	for _, want := range []string{`"component":"verifier"`, `"contract":"<STK AAPL USD>"`, `"message":"not a valid contract"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line missing %s: %s", want, out)
		}
	}
}

func TestLogMetricEmitsStructuredEntry(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "json", "stdout", 0); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithComponent("verifier").LogMetric("verifier", "contracts_verified", 1, "counter", Fields{"sec_type": "STK"})

	out := buf.String()
	for _, want := range []string{`"metric":"contracts_verified"`, `"value":1`, `"metric_type":"counter"`, `"sec_type":"STK"`} {
		if !strings.Contains(out, want) {
			t.Errorf("metric entry missing %s: %s", want, out)
		}
	}
}

func TestCountersAccumulate(t *testing.T) {
	beforeAcq, beforeRel := SubscriptionCounts()

	IncrementSubscriptionAcquired()
	IncrementSubscriptionAcquired()
	IncrementSubscriptionReleased()

	acquired, released := SubscriptionCounts()
	if acquired-beforeAcq != 2 {
		t.Errorf("acquired delta %d, want 2", acquired-beforeAcq)
	}
	if released-beforeRel != 1 {
		t.Errorf("released delta %d, want 1", released-beforeRel)
	}

	IncrementRequestSent("RequestContractData")
	IncrementEventDispatched("ContractData")
	IncrementTimeout("RequestMarketData")

	requests := snapshotCounts(&requestsSent)
	if requests["RequestContractData"] == 0 {
		t.Error("request counter not recorded")
	}
	if requests["RequestMarketData_timeout"] == 0 {
		t.Error("timeout counter not recorded")
	}
	events := snapshotCounts(&eventsSeen)
	if events["ContractData"] == 0 {
		t.Error("event counter not recorded")
	}
}
