package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/xuri/excelize/v2"

	"github.com/ternarybob/quire/internal/common"
	"github.com/ternarybob/quire/internal/models"
)

func row(n int, cells ...string) Row {
	return Row{Number: n, Cells: cells}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		name      string
		cells     []string
		wantErr   bool
		wantRange *models.PageRange
		wantSort  int
	}{
		{"full range", []string{"第一章", "book.pdf", "intro", "0", "1", "3"}, false, &models.PageRange{Begin: 1, End: 3}, 0},
		{"spreadsheet floats", []string{"a", "b.pdf", "c", "2.0", "4.0", "4"}, false, &models.PageRange{Begin: 4, End: 4}, 2},
		{"missing end drops range", []string{"a", "b.txt", "c", "1", "2", ""}, false, nil, 1},
		{"no bounds", []string{"a", "b.txt", "c", "1", "", ""}, false, nil, 1},
		{"too few fields", []string{"a", "b.pdf", "c", "1", "2"}, true, nil, 0},
		{"begin after end", []string{"a", "b.pdf", "c", "1", "5", "3"}, true, nil, 0},
		{"zero begin", []string{"a", "b.pdf", "c", "1", "0", "3"}, true, nil, 0},
		{"bad sort", []string{"a", "b.pdf", "c", "x", "1", "3"}, true, nil, 0},
		{"fractional page", []string{"a", "b.pdf", "c", "1", "1.5", "3"}, true, nil, 0},
		{"huge sort", []string{"a", "b.pdf", "c", "1e300", "1", "3"}, true, nil, 0},
		{"huge end", []string{"a", "b.pdf", "c", "1", "1", "-1e19"}, true, nil, 0},
		{"end past int range", []string{"a", "b.pdf", "c", "1", "1", "9223372036854775808"}, true, nil, 0},
		{"empty title", []string{"", "b.pdf", "c", "1", "1", "3"}, true, nil, 0},
		{"category with separator", []string{"a", "b.pdf", "c_d", "1", "1", "3"}, true, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, _, err := ParseRow("index.csv", row(2, tt.cells...))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsBadInput(err))
				var fe *common.FormatError
				require.ErrorAs(t, err, &fe)
				assert.Equal(t, 2, fe.Row)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRange, rule.PageRange)
			assert.Equal(t, tt.wantSort, rule.SortIndex)
		})
	}
}

func TestParseParams(t *testing.T) {
	params, warnings := ParseParams([]string{"crop=10/20/300/400|lang=eng", "COLOR=red", "garbage"})

	require.NotNil(t, params.Crop)
	assert.Equal(t, models.CropRect{Left: 10, Top: 20, Right: 300, Bottom: 400}, *params.Crop)
	assert.Equal(t, "eng", params.Lang)
	assert.Len(t, warnings, 2)
}

func TestParseParams_MalformedCropDropped(t *testing.T) {
	tests := []string{"CROP=1/2/3", "CROP=1/2/x/4", "CROP=-1/2/3/4", "CROP=__import__('os')"}
	for _, cell := range tests {
		t.Run(cell, func(t *testing.T) {
			params, warnings := ParseParams([]string{cell + "|LANG=chi_tra"})
			assert.Nil(t, params.Crop)
			assert.Equal(t, "chi_tra", params.Lang)
			assert.Len(t, warnings, 1)
		})
	}
}

func TestParseParams_ValueKeepsEquals(t *testing.T) {
	params, warnings := ParseParams([]string{"LANG=chi_sim+eng=x"})
	assert.Empty(t, warnings)
	assert.Equal(t, "chi_sim+eng=x", params.Lang)
}

func TestParseIndex_SortsStablyAndKeepsGoodRows(t *testing.T) {
	table := &Table{Source: "index.csv", Rows: []Row{
		row(2, "c", "c.pdf", "later", "2", "1", "1"),
		row(3, "a", "a.pdf", "first", "0", "1", "1"),
		row(4, "bad", "a.pdf", "first", "0", "9", "1"),
		row(5, "b", "b.pdf", "first", "0", "1", "1", "LANG=eng"),
	}}

	rules, rowErrs, warnings := ParseIndex(table)

	require.Len(t, rules, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{rules[0].Title, rules[1].Title, rules[2].Title})
	assert.Len(t, rowErrs, 1)
	assert.Empty(t, warnings)
	assert.Equal(t, "eng", rules[1].Params.Lang)
}

func TestResolve_OverrideNotMerge(t *testing.T) {
	fallback := map[string]models.Params{
		"book.pdf": {Lang: "chi_sim", Crop: &models.CropRect{Right: 100, Bottom: 100}},
	}

	withOwn := models.IndexRule{SourcePath: "book.pdf", Params: models.Params{Lang: "eng"}}
	assert.Equal(t, models.Params{Lang: "eng"}, Resolve(withOwn, fallback))

	withoutOwn := models.IndexRule{SourcePath: "book.pdf"}
	assert.Equal(t, fallback["book.pdf"], Resolve(withoutOwn, fallback))

	unknown := models.IndexRule{SourcePath: "other.pdf"}
	assert.True(t, Resolve(unknown, fallback).Empty())
}

func TestGroup(t *testing.T) {
	dir := t.TempDir()
	rules := []models.IndexRule{
		{Title: "one", SourcePath: "book.pdf", Category: "x", PageRange: &models.PageRange{Begin: 1, End: 3}},
		{Title: "notes", SourcePath: "notes.txt", Category: "x"},
		{Title: "two", SourcePath: "./book.pdf", Category: "x", PageRange: &models.PageRange{Begin: 2, End: 5}},
		{Title: "abs", SourcePath: filepath.Join(dir, "book.pdf"), Category: "y"},
	}

	groups := Group(rules, nil, dir)

	require.Len(t, groups, 2)
	assert.Equal(t, filepath.Join(dir, "book.pdf"), groups[0].SourcePath)
	assert.True(t, groups[0].Paginated())
	require.Len(t, groups[0].Entries, 3)
	assert.Equal(t, []string{"one", "two", "abs"}, []string{groups[0].Entries[0].Title, groups[0].Entries[1].Title, groups[0].Entries[2].Title})
	assert.Equal(t, filepath.Join(dir, "notes.txt"), groups[1].SourcePath)
	assert.False(t, groups[1].Paginated())
}

func TestReadTable_Formats(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "index.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("title,source,category,sort,begin,end,params\n"+
		"第一章,book.pdf,intro,0,1,3,\n\n"+
		"附录,notes.txt,appendix,1,,,LANG=eng\n"), 0644))

	yamlPath := filepath.Join(dir, "index.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("rows:\n"+
		"  - [第一章, book.pdf, intro, 0, 1, 3]\n"+
		"  - [附录, notes.txt, appendix, 1, null, null, \"LANG=eng\"]\n"), 0644))

	xlsxPath := filepath.Join(dir, "index.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"title", "source", "category", "sort", "begin", "end", "params"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"第一章", "book.pdf", "intro", 0, 1, 3}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"附录", "notes.txt", "appendix", 1, "", "", "LANG=eng"}))
	require.NoError(t, f.SaveAs(xlsxPath))
	require.NoError(t, f.Close())

	for _, path := range []string{csvPath, yamlPath, xlsxPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			table, err := ReadTable(path)
			require.NoError(t, err)

			rules, rowErrs, _ := ParseIndex(table)
			require.Empty(t, rowErrs)
			require.Len(t, rules, 2)
			assert.Equal(t, "第一章", rules[0].Title)
			assert.Equal(t, &models.PageRange{Begin: 1, End: 3}, rules[0].PageRange)
			assert.Nil(t, rules[1].PageRange)
			assert.Equal(t, "eng", rules[1].Params.Lang)
		})
	}
}

func TestReadTable_Missing(t *testing.T) {
	_, err := ReadTable(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
	assert.True(t, common.IsBadInput(err))
}

func TestService_LoadFallback(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.csv")
	require.NoError(t, os.WriteFile(path, []byte("source,params\nbook.pdf,CROP=0/0/800/1000|LANG=eng\n,LANG=x\nempty.pdf,\n"), 0644))

	svc := NewService(arbor.NewLogger())

	fallback, err := svc.LoadFallback(path)
	require.NoError(t, err)
	require.Len(t, fallback, 1)
	assert.Equal(t, "eng", fallback["book.pdf"].Lang)

	none, err := svc.LoadFallback(filepath.Join(dir, "absent.csv"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
