package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestClassifyDetail(t *testing.T) {
	assert.Equal(t, DetailMissing, ClassifyDetail(false, strPtr("Ana")))
	assert.Equal(t, DetailEmpty, ClassifyDetail(true, nil))
	assert.Equal(t, DetailEmpty, ClassifyDetail(true, strPtr("   ")))
	assert.Equal(t, DetailExists, ClassifyDetail(true, strPtr("Ana")))
}

func TestDisplayName(t *testing.T) {
	cases := []struct {
		name          string
		state         DetailState
		first, middle *string
		last          *string
		want          string
	}{
		{"full", DetailExists, strPtr("Ana"), strPtr("santos"), strPtr("Cruz"), "Cruz, Ana S."},
		{"no middle", DetailExists, strPtr("Ana"), nil, strPtr("Cruz"), "Cruz, Ana"},
		{"no last", DetailExists, strPtr("Ana"), nil, nil, "Ana"},
		{"empty falls back", DetailEmpty, strPtr(""), nil, strPtr("Cruz"), "Juan Cruz"},
		{"missing falls back", DetailMissing, nil, nil, nil, "Juan Cruz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DisplayName(tc.state, tc.first, tc.middle, tc.last, " Juan Cruz "))
		})
	}
}

func TestBeneficiaryRecordAnnotate(t *testing.T) {
	rec := BeneficiaryRecord{Beneficiary: Beneficiary{ID: 1, HeadName: "Juan Cruz", MonthlyGrant: decimal.RequireFromString("1000.00")}}
	rec.Annotate()
	assert.Equal(t, DetailMissing, rec.DetailState)
	assert.Equal(t, "Juan Cruz", rec.DisplayName)
	assert.Nil(t, rec.ControlNumber)

	rec.Detail = &BeneficiaryDetail{FirstName: strPtr("Ana"), LastName: strPtr("Cruz"), ControlNumber: "4PS-2024-0001"}
	rec.Annotate()
	assert.Equal(t, DetailExists, rec.DetailState)
	assert.Equal(t, "Cruz, Ana", rec.DisplayName)
	require.NotNil(t, rec.ControlNumber)
	assert.Equal(t, "4PS-2024-0001", *rec.ControlNumber)
}

func TestDetailInputIsEmpty(t *testing.T) {
	var nilInput *BeneficiaryDetailInput
	assert.True(t, nilInput.IsEmpty())
	assert.True(t, (&ScholarBackgroundInput{}).IsEmpty())
	assert.False(t, (&ScholarBackgroundInput{GuardianName: strPtr("Lola")}).IsEmpty())
}

func TestRecordFilterNormalize(t *testing.T) {
	f := RecordFilter{Page: 0, PageSize: 500, Search: "  cruz "}
	f.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.PageSize)
	assert.Equal(t, "cruz", f.Search)

	f = RecordFilter{Page: 3}
	f.Normalize()
	assert.Equal(t, 20, f.PageSize)
	assert.Equal(t, 40, f.Offset())
}

func TestDateJSONAndScan(t *testing.T) {
	var payload struct {
		Birth *Date `json:"birth_date"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"birth_date":"1990-05-17"}`), &payload))
	require.NotNil(t, payload.Birth)
	assert.Equal(t, "1990-05-17", payload.Birth.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"birth_date":"1990-05-17"}`, string(out))

	var d Date
	require.NoError(t, d.Scan(time.Date(2001, 2, 3, 0, 0, 0, 0, time.FixedZone("PHT", 8*3600))))
	assert.Equal(t, "2001-02-03", d.String())
	require.NoError(t, d.Scan([]byte("2001-02-03T00:00:00Z")))
	assert.Equal(t, "2001-02-03", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2001-02-03", v)

	assert.Error(t, json.Unmarshal([]byte(`{"birth_date":"17/05/1990"}`), &payload))
}

func TestCallerPermissions(t *testing.T) {
	assert.True(t, Caller{UserID: "u", Role: RoleStaff}.CanWrite())
	assert.False(t, Caller{UserID: "u", Role: RoleStaff}.CanDelete())
	assert.True(t, Caller{UserID: "u", Role: RoleAdmin}.CanDelete())
	assert.False(t, Caller{UserID: "u", Role: RoleStudent}.CanWrite())
	assert.False(t, Caller{}.Authenticated())
}

func TestLeaveDays(t *testing.T) {
	l := LeaveRequest{StartDate: NewDate(2024, 1, 30), EndDate: NewDate(2024, 2, 2)}
	assert.Equal(t, 4, l.Days())
}
