package snowflake

import (
	"testing"
	"time"
)

func TestTime(t *testing.T) {
	tests := []struct {
		name string
		id   int64
		want time.Time
	}{
		{
			name: "epoch",
			id:   0,
			want: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "known message id",
			// 175928847299117063 >> 22 = 41944705796 ms after epoch
			id:   175928847299117063,
			want: time.Date(2016, 4, 30, 11, 18, 25, 796e6, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Time(tt.id)
			if !got.Equal(tt.want) {
				t.Errorf("Time(%d) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

// A snowflake floored to its millisecond and re-encoded must round-trip
// exactly: the low 22 bits carry no time information.
func TestRoundTripMillisecond(t *testing.T) {
	ids := []int64{
		0,
		1 << 22,
		175928847299117063,
		1234567890123456789,
	}

	for _, id := range ids {
		floored := (id >> 22) << 22
		if got := FromTime(Time(id)); got != floored {
			t.Errorf("FromTime(Time(%d)) = %d, want %d", id, got, floored)
		}
	}
}

func TestFromTimeOrdering(t *testing.T) {
	a := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Millisecond)
	if FromTime(a) >= FromTime(b) {
		t.Errorf("snowflake ordering does not follow time ordering: %d >= %d", FromTime(a), FromTime(b))
	}
}

func TestDay(t *testing.T) {
	if got := Day(175928847299117063); got != "2016-04-30" {
		t.Errorf("Day() = %q, want %q", got, "2016-04-30")
	}
}
