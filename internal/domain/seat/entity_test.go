package seat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestNewSeat(t *testing.T) {
	s := NewSeat("7", baseTime)

	assert.Equal(t, "7", s.ID)
	assert.Equal(t, StatusVacant, s.Status)
	assert.Nil(t, s.OccupantID)
	assert.Nil(t, s.OccupantName)
	assert.Nil(t, s.BookedUntil)
	assert.Equal(t, baseTime, s.CreatedAt)
	assert.Equal(t, 1, s.Version)
	require.NoError(t, s.Validate())
}

func TestSeat_Book(t *testing.T) {
	t.Run("空席を予約できる", func(t *testing.T) {
		s := NewSeat("1", baseTime)
		until := baseTime.Add(2 * time.Hour)

		err := s.Book("u1", "Asha", until, baseTime)

		require.NoError(t, err)
		assert.Equal(t, StatusOccupied, s.Status)
		assert.True(t, s.IsHeldBy("u1"))
		assert.Equal(t, "Asha", *s.OccupantName)
		assert.Equal(t, until, *s.BookedUntil)
		assert.Equal(t, StateActiveBooking, s.EffectiveStateAt(baseTime))
	})

	t.Run("期限切れの予約は上書きできる", func(t *testing.T) {
		s := &Seat{ID: "1", Status: StatusOccupied, OccupantID: strPtr("u1"), OccupantName: strPtr("Asha"), BookedUntil: timePtr(baseTime.Add(-time.Minute))}

		err := s.Book("u2", "Ravi", baseTime.Add(time.Hour), baseTime)

		require.NoError(t, err)
		assert.True(t, s.IsHeldBy("u2"))
		assert.Equal(t, "Ravi", *s.OccupantName)
	})

	t.Run("有効な予約がある座席は予約できない", func(t *testing.T) {
		s := &Seat{ID: "1", Status: StatusOccupied, OccupantID: strPtr("u1"), BookedUntil: timePtr(baseTime.Add(time.Minute))}

		err := s.Book("u2", "Ravi", baseTime.Add(time.Hour), baseTime)

		assert.ErrorIs(t, err, ErrSeatUnavailable)
		assert.True(t, s.IsHeldBy("u1"))
	})

	t.Run("運用者が使用中にした座席は予約できない", func(t *testing.T) {
		s := &Seat{ID: "1", Status: StatusOccupied}

		err := s.Book("u2", "Ravi", baseTime.Add(time.Hour), baseTime)

		assert.ErrorIs(t, err, ErrSeatUnavailable)
	})

	t.Run("期限が現在時刻以前なら失敗する", func(t *testing.T) {
		for _, until := range []time.Time{baseTime, baseTime.Add(-time.Second)} {
			s := NewSeat("1", baseTime)

			err := s.Book("u1", "Asha", until, baseTime)

			assert.ErrorIs(t, err, ErrInvalidDeadline)
			assert.True(t, s.IsVacant())
		}
	})
}

func TestSeat_Vacate(t *testing.T) {
	s := NewSeat("1", baseTime)
	require.NoError(t, s.Book("u1", "Asha", baseTime.Add(time.Hour), baseTime))

	later := baseTime.Add(time.Minute)
	s.Vacate(later)

	assert.True(t, s.IsVacant())
	assert.Nil(t, s.OccupantID)
	assert.Nil(t, s.OccupantName)
	assert.Nil(t, s.BookedUntil)
	assert.Equal(t, later, s.UpdatedAt)
	require.NoError(t, s.Validate())
}

func TestSeat_Toggle(t *testing.T) {
	t.Run("空席は期限なしの使用中になる", func(t *testing.T) {
		s := NewSeat("1", baseTime)

		s.Toggle(baseTime)

		assert.Equal(t, StatusOccupied, s.Status)
		assert.Nil(t, s.BookedUntil)
		assert.Equal(t, StateForcedOccupied, s.EffectiveStateAt(baseTime))
	})

	t.Run("予約中の座席は空席になり予約情報が消える", func(t *testing.T) {
		s := NewSeat("1", baseTime)
		require.NoError(t, s.Book("u1", "Asha", baseTime.Add(time.Hour), baseTime))

		s.Toggle(baseTime)

		assert.True(t, s.IsVacant())
		assert.Nil(t, s.OccupantID)
		assert.Nil(t, s.BookedUntil)
	})

	t.Run("二回切り替えると期限なしの使用中に戻る", func(t *testing.T) {
		s := NewSeat("1", baseTime)
		require.NoError(t, s.Book("u1", "Asha", baseTime.Add(time.Hour), baseTime))

		s.Toggle(baseTime)
		s.Toggle(baseTime)

		assert.Equal(t, StateForcedOccupied, s.EffectiveStateAt(baseTime))
		assert.Nil(t, s.OccupantID)
	})
}

func TestSeat_Validate(t *testing.T) {
	tests := []struct {
		name        string
		seat        *Seat
		expectedErr error
	}{
		{"有効な空席", &Seat{ID: "1", Status: StatusVacant}, nil},
		{"有効な予約", &Seat{ID: "1", Status: StatusOccupied, OccupantID: strPtr("u1"), BookedUntil: timePtr(baseTime)}, nil},
		{"有効な強制使用中", &Seat{ID: "1", Status: StatusOccupied}, nil},
		{"IDが空", &Seat{Status: StatusVacant}, ErrSeatIDRequired},
		{"不明な状態", &Seat{ID: "1", Status: "broken"}, ErrInvalidStatus},
		{"空席に予約者がいる", &Seat{ID: "1", Status: StatusVacant, OccupantID: strPtr("u1")}, ErrInconsistentSeat},
		{"予約者だけで期限がない", &Seat{ID: "1", Status: StatusOccupied, OccupantID: strPtr("u1")}, ErrInconsistentSeat},
		{"期限だけで予約者がいない", &Seat{ID: "1", Status: StatusOccupied, BookedUntil: timePtr(baseTime)}, ErrInconsistentSeat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.seat.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
			}
		})
	}
}
