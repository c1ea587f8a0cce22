package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/orris-inc/gatekeeper/internal/application/stats"
	"github.com/orris-inc/gatekeeper/internal/domain/member"
)

func TestMembersWorkbook(t *testing.T) {
	approved := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	until := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	rows := []stats.MemberRow{
		{
			UserID:             501,
			Username:           "alice",
			DisplayName:        "Alice Rossi",
			Stage:              member.StageSubscribed,
			ApprovedAt:         &approved,
			ActiveUntil:        &until,
			SubscriptionStatus: string(member.SubscriptionActive),
			TotalPayments:      2,
			CreatedAt:          approved,
		},
		{UserID: 777, DisplayName: "mallory", Stage: member.StagePending, CreatedAt: approved},
	}

	data, err := MembersWorkbook(rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, MemberHeader, got[0])
	assert.Equal(t, "501", got[1][0])
	assert.Equal(t, "alice", got[1][1])
	assert.Equal(t, string(member.StageSubscribed), got[1][3])
	assert.Equal(t, "01/04/2026", got[1][6])
	assert.Equal(t, "2", got[1][8])
	assert.Equal(t, string(member.StagePending), got[2][3])
	assert.Equal(t, "", got[2][4])
}

func TestMembersWorkbook_Empty(t *testing.T) {
	data, err := MembersWorkbook(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileName(t *testing.T) {
	assert.Contains(t, FileName(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)), "members-20260310-")
}
