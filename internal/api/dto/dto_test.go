package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-seat-reservation/internal/domain/seat"
)

func TestBookingRequest_Deadline(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// 2026-03-02 09:00 UTC = 14:30 IST
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	abs := now.Add(time.Hour)

	tests := []struct {
		name    string
		req     BookingRequest
		want    time.Time
		wantErr bool
	}{
		{"絶対時刻はそのまま", BookingRequest{Until: &abs}, abs, false},
		{"時計の時刻はその日の現地時刻", BookingRequest{UntilClock: "18:30"}, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), false},
		{"過ぎた時刻も翌日にしない", BookingRequest{UntilClock: "08:00"}, time.Date(2026, 3, 2, 2, 30, 0, 0, time.UTC), false},
		{"両方なし", BookingRequest{}, time.Time{}, true},
		{"形式が不正", BookingRequest{UntilClock: "25:99"}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.req.Deadline(now, kolkata)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestToSeatResponse(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s := seat.NewSeat("3", now)
	require.NoError(t, s.Book("u1", "Alice", now.Add(time.Hour), now))

	resp := ToSeatResponse(s, now)
	assert.Equal(t, "3", resp.ID)
	assert.Equal(t, "occupied", resp.Status)
	assert.Equal(t, "active_booking", resp.State)
	assert.Equal(t, "Alice", *resp.OccupantName)

	later := ToSeatResponse(s, now.Add(2*time.Hour))
	assert.Equal(t, "expired_booking", later.State)
}
