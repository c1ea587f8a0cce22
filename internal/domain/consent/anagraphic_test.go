package consent

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnagraphic(t *testing.T) {
	today := time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		fullName  string
		birth     time.Time
		place     string
		address   string
		wantField string
	}{
		{"valid adult", "alice  ROSSI", today.AddDate(-30, 0, 0), "Bologna", "Via Roma 12, Bologna", ""},
		{"exactly eighteen", "Alice Rossi", today.AddDate(-18, 0, 0), "Bologna", "Via Roma 12, Bologna", ""},
		{"seventeen", "Alice Rossi", today.AddDate(-17, 0, 0), "Bologna", "Via Roma 12, Bologna", FieldBirthDate},
		{"one day short of eighteen", "Alice Rossi", today.AddDate(-18, 0, 1), "Bologna", "Via Roma 12, Bologna", FieldBirthDate},
		{"implausible age", "Alice Rossi", today.AddDate(-121, 0, 0), "Bologna", "Via Roma 12, Bologna", FieldBirthDate},
		{"future birth", "Alice Rossi", today.AddDate(0, 0, 1), "Bologna", "Via Roma 12, Bologna", FieldBirthDate},
		{"single name", "Alice", today.AddDate(-30, 0, 0), "Bologna", "Via Roma 12, Bologna", FieldFullName},
		{"initial only", "A Rossi", today.AddDate(-30, 0, 0), "Bologna", "Via Roma 12, Bologna", FieldFullName},
		{"digits in name", "Alice R0ssi", today.AddDate(-30, 0, 0), "Bologna", "Via Roma 12, Bologna", FieldFullName},
		{"short place", "Alice Rossi", today.AddDate(-30, 0, 0), "B", "Via Roma 12, Bologna", FieldBirthPlace},
		{"incomplete address", "Alice Rossi", today.AddDate(-30, 0, 0), "Bologna", "Via Roma", FieldResidenceAddress},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAnagraphic(tt.fullName, tt.birth, tt.place, tt.address, today)
			if tt.wantField == "" {
				require.NoError(t, err)
				assert.NotEmpty(t, a.FullName)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidAnagraphic)
			var fe *FieldError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.wantField, fe.Field)
		})
	}
}

func TestNormalizeFullName(t *testing.T) {
	assert.Equal(t, "Alice Rossi", NormalizeFullName("  alice   ROSSI "))
	assert.Equal(t, "Maria De Luca", NormalizeFullName("maria de luca"))
}
