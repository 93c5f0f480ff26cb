package db

import (
	"encoding/json"
	"testing"
)

func TestPoolStats_JSON(t *testing.T) {
	stats := &PoolStats{
		TotalConns:      10,
		IdleConns:       5,
		AcquiredConns:   5,
		MaxConns:        20,
		AcquireCount:    100,
		AcquireDuration: "1.5s",
		Healthy:         true,
	}

	payload, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal pool stats: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal pool stats: %v", err)
	}

	if decoded["total_conns"].(float64) != 10 {
		t.Errorf("expected total_conns 10, got %v", decoded["total_conns"])
	}
	if decoded["acquire_duration"].(string) != "1.5s" {
		t.Errorf("expected acquire_duration 1.5s, got %v", decoded["acquire_duration"])
	}
	if decoded["healthy"].(bool) != true {
		t.Errorf("expected healthy true, got %v", decoded["healthy"])
	}
}
