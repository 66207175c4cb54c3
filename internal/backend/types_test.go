package backend

import (
	"encoding/json"
	"testing"
	"time"
)

func TestInsightsMetricTotal(t *testing.T) {
	raw := `{"account_metrics":{
		"reach":[{"value":100,"end_time":"2024-04-01T07:00:00+0000"},{"value":250}],
		"follower_count":{"value":"12345"},
		"impressions":900,
		"broken":{"nope":1}
	}}`
	var in Insights
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	tests := []struct {
		name string
		want float64
		ok   bool
	}{
		{"reach", 350, true},
		{"follower_count", 12345, true},
		{"impressions", 900, true},
		{"broken", 0, false},
		{"missing", 0, false},
	}
	for _, tt := range tests {
		got, ok := in.MetricTotal(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("MetricTotal(%q) = %v, %v; want %v, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}

	if series := in.MetricSeries("reach"); len(series) != 2 || series[1] != 250 {
		t.Errorf("MetricSeries(reach) = %v", series)
	}
}

func TestIDAcceptsNumberOrString(t *testing.T) {
	var acct BusinessAccount
	if err := json.Unmarshal([]byte(`{"id":12,"name":"Acme"}`), &acct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if acct.ID != "12" {
		t.Errorf("ID = %q, want 12", acct.ID)
	}
	if err := json.Unmarshal([]byte(`{"id":"b-7"}`), &acct); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if acct.ID != "b-7" {
		t.Errorf("ID = %q, want b-7", acct.ID)
	}
}

func TestTimestampLayouts(t *testing.T) {
	var p Post
	if err := json.Unmarshal([]byte(`{"timestamp":"2024-04-15T10:00:00+0000"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)
	if !p.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", p.Timestamp.Time, want)
	}

	if err := json.Unmarshal([]byte(`{"timestamp":"yesterday"}`), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !p.Timestamp.IsZero() {
		t.Errorf("unparseable timestamp should be zero, got %v", p.Timestamp.Time)
	}
}
