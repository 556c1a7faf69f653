package mqtt

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTopics_BridgeState(t *testing.T) {
	got := Topics{}.BridgeState("hue-1")
	if got != "homelink/state/hue-1" {
		t.Errorf("BridgeState() = %q, want homelink/state/hue-1", got)
	}
}

func TestTopics_SystemStatus(t *testing.T) {
	got := Topics{}.SystemStatus()
	if got != "homelink/system/status" {
		t.Errorf("SystemStatus() = %q, want homelink/system/status", got)
	}
}

func TestBuildStatusPayload(t *testing.T) {
	payload := buildStatusPayload("offline", "homelink-core", "graceful_shutdown")

	var decoded map[string]string
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		t.Fatalf("status payload is not valid JSON: %v", err)
	}
	if decoded["status"] != "offline" {
		t.Errorf("status = %q, want offline", decoded["status"])
	}
	if decoded["client_id"] != "homelink-core" {
		t.Errorf("client_id = %q, want homelink-core", decoded["client_id"])
	}
	if decoded["reason"] != "graceful_shutdown" {
		t.Errorf("reason = %q, want graceful_shutdown", decoded["reason"])
	}
	if decoded["timestamp"] == "" {
		t.Error("timestamp missing")
	}
}

func TestBuildStatusPayload_OmitsEmptyReason(t *testing.T) {
	payload := buildStatusPayload("online", "homelink-core", "")
	if strings.Contains(payload, "reason") {
		t.Errorf("online payload contains reason field: %s", payload)
	}
}

func TestPublish_Validation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 1, false); err != ErrInvalidTopic {
		t.Errorf("Publish(empty topic) error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("homelink/state/hue-1", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("Publish(qos=3) error = %v, want ErrInvalidQoS", err)
	}
	if err := c.Publish("homelink/state/hue-1", []byte("x"), 1, false); err != ErrNotConnected {
		t.Errorf("Publish() while disconnected error = %v, want ErrNotConnected", err)
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v, want nil", err)
	}
}
