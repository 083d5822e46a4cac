package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	d := Dataset{Headers: []string{"Control No.", "Name", "Status"}}
	d.Append(map[string]string{"Control No.": "4PS-2024-0001", "Name": "Cruz, Ana", "Status": "Active"})
	d.Append(map[string]string{"Name": "Dela Peña, José", "Status": "Inactive"})
	return d
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "\ufeffControl No.,Name,Status\n4PS-2024-0001,\"Cruz, Ana\",Active\n,\"Dela Peña, José\",Inactive\n", string(out))
}

func TestCSVNeutralizesFormulas(t *testing.T) {
	d := Dataset{Headers: []string{"Name", "Remarks"}}
	d.Append(map[string]string{"Name": "=HYPERLINK(\"x\")", "Remarks": "-5 days"})
	d.Append(map[string]string{"Name": "Cruz", "Remarks": "@home"})
	out, err := NewCSVExporter().Render(d)
	require.NoError(t, err)
	assert.Equal(t, "\ufeffName,Remarks\n\"'=HYPERLINK(\"\"x\"\")\",'-5 days\nCruz,'@home\n", string(out))
}

func TestDatasetValues(t *testing.T) {
	d := sampleDataset()
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, []string{"", "Dela Peña, José", "Inactive"}, d.Values(1))
}

func TestRenderersRequireHeaders(t *testing.T) {
	r := NewRenderer()
	for _, f := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		_, err := r.Render(f, Dataset{}, "x")
		assert.Error(t, err, string(f))
	}
}

func TestPDFRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "4Ps Beneficiaries")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFProfile(t *testing.T) {
	out, err := NewRenderer().Profile(Profile{
		Title:    "4Ps Beneficiary Profile",
		Subtitle: "4PS-2024-0001",
		Sections: []Section{{Heading: "Household", Fields: []Field{{Label: "Household ID", Value: "HH-001"}, {Label: "Remarks"}}}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset(), "Beneficiaries")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Beneficiaries")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Control No.", "Name", "Status"}, rows[0])
	assert.Equal(t, "Cruz, Ana", rows[1][1])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}
